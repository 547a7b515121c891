// Package registry holds the static directory of participating banks.
package registry

import (
	"fmt"
	"strings"

	"github.com/dzpay/bankcore/pkg/models"
)

// DefaultBankCode is assumed when an account number carries no known prefix.
const DefaultBankCode = "BNA"

// Registry is the immutable bank directory, loaded once at startup.
type Registry struct {
	banks    []models.Bank
	byCode   map[string]*models.Bank
	prefixes map[string]string // account number prefix -> bank code
}

// NewRegistry creates a registry from the given bank list. An empty list loads
// the built-in Bank of Algeria directory.
func NewRegistry(banks []models.Bank) *Registry {
	if len(banks) == 0 {
		banks = defaultBanks()
	}
	r := &Registry{
		banks:    banks,
		byCode:   make(map[string]*models.Bank, len(banks)),
		prefixes: defaultAccountPrefixes(),
	}
	for i := range r.banks {
		r.byCode[r.banks[i].Code] = &r.banks[i]
	}
	return r
}

// All returns every registered bank.
func (r *Registry) All() []models.Bank {
	out := make([]models.Bank, len(r.banks))
	copy(out, r.banks)
	return out
}

// Get looks up a bank by code.
func (r *Registry) Get(code string) (*models.Bank, error) {
	bank, ok := r.byCode[code]
	if !ok {
		return nil, fmt.Errorf("bank %s not found", code)
	}
	return bank, nil
}

// Exists reports whether a bank code is registered.
func (r *Registry) Exists(code string) bool {
	_, ok := r.byCode[code]
	return ok
}

// CodeForAccount extracts the owning bank code from an account number prefix.
// Unknown prefixes map to the default bank.
func (r *Registry) CodeForAccount(accountNumber string) string {
	for prefix, code := range r.prefixes {
		if strings.HasPrefix(accountNumber, prefix) {
			return code
		}
	}
	return DefaultBankCode
}

func defaultAccountPrefixes() map[string]string {
	return map[string]string{
		"0001": "BNA",
		"0002": "CPA",
		"0003": "BADR",
		"0004": "BEA",
		"0005": "BDL",
		"0080": "AGB",
		"0081": "SGA",
		"0082": "HSBC",
	}
}

// defaultBanks returns the Bank of Algeria registry of participating banks.
func defaultBanks() []models.Bank {
	return []models.Bank{
		{
			Code:         "BNA",
			Name:         "Banque Nationale d'Algérie",
			NameAr:       "البنك الوطني الجزائري",
			NameFr:       "Banque Nationale d'Algérie",
			SwiftCode:    "BNALDZ22",
			Endpoint:     "https://api.bna.dz/v2",
			Headquarters: "Algiers",
			Established:  1966,
			Category:     models.BankCategoryPublic,
			Services:     []string{"retail", "corporate", "international", "islamic"},
		},
		{
			Code:         "CPA",
			Name:         "Crédit Populaire d'Algérie",
			NameAr:       "القرض الشعبي الجزائري",
			NameFr:       "Crédit Populaire d'Algérie",
			SwiftCode:    "CPABDZ22",
			Endpoint:     "https://api.cpa.dz/v2",
			Headquarters: "Algiers",
			Established:  1966,
			Category:     models.BankCategoryPublic,
			Services:     []string{"retail", "sme", "agriculture", "housing"},
		},
		{
			Code:         "BADR",
			Name:         "Banque de l'Agriculture et du Développement Rural",
			NameAr:       "بنك الفلاحة والتنمية الريفية",
			NameFr:       "Banque de l'Agriculture et du Développement Rural",
			SwiftCode:    "BADRDZAL",
			Endpoint:     "https://api.badr.dz/v2",
			Headquarters: "Algiers",
			Established:  1982,
			Category:     models.BankCategoryPublic,
			Services:     []string{"agriculture", "rural", "sme", "equipment"},
		},
		{
			Code:         "BEA",
			Name:         "Banque Extérieure d'Algérie",
			NameAr:       "البنك الخارجي الجزائري",
			NameFr:       "Banque Extérieure d'Algérie",
			SwiftCode:    "BEADDZAL",
			Endpoint:     "https://api.bea.dz/v2",
			Headquarters: "Algiers",
			Established:  1967,
			Category:     models.BankCategoryPublic,
			Services:     []string{"international", "trade", "corporate", "treasury"},
		},
		{
			Code:         "BDL",
			Name:         "Banque de Développement Local",
			NameAr:       "بنك التنمية المحلية",
			NameFr:       "Banque de Développement Local",
			SwiftCode:    "BDLADZAL",
			Endpoint:     "https://api.bdl.dz/v2",
			Headquarters: "Algiers",
			Established:  1985,
			Category:     models.BankCategoryPublic,
			Services:     []string{"local", "municipal", "infrastructure", "development"},
		},
		{
			Code:         "AGB",
			Name:         "Arab Gulf Bank Algeria",
			NameAr:       "بنك الخليج العربي الجزائر",
			NameFr:       "Arab Gulf Bank Algeria",
			SwiftCode:    "AGBADZAL",
			Endpoint:     "https://api.agb.dz/v2",
			Headquarters: "Algiers",
			Established:  2004,
			Category:     models.BankCategoryForeign,
			Services:     []string{"retail", "corporate", "islamic", "investment"},
		},
		{
			Code:         "SGA",
			Name:         "Société Générale Algérie",
			NameAr:       "سوسيتي جنرال الجزائر",
			NameFr:       "Société Générale Algérie",
			SwiftCode:    "SOGEDRZA",
			Endpoint:     "https://api.sgalgerie.dz/v2",
			Headquarters: "Algiers",
			Established:  2000,
			Category:     models.BankCategoryForeign,
			Services:     []string{"retail", "corporate", "private", "digital"},
		},
		{
			Code:         "HSBC",
			Name:         "HSBC Algeria",
			NameAr:       "اتش اس بي سي الجزائر",
			NameFr:       "HSBC Algeria",
			SwiftCode:    "HBMEDZAL",
			Endpoint:     "https://api.hsbc.dz/v2",
			Headquarters: "Algiers",
			Established:  2008,
			Category:     models.BankCategoryForeign,
			Services:     []string{"corporate", "trade", "treasury", "capital"},
		},
	}
}
