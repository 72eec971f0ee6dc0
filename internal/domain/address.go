package domain

// Address labels are a closed set.
const (
	AddressLabelCasa     = "Casa"
	AddressLabelTrabalho = "Trabalho"
	AddressLabelOutro    = "Outro"
)

// MaxAddresses is the per-profile address book limit.
const MaxAddresses = 10

// Address is one address book entry. At most one address per profile has
// IsDefault set; the backend enforces the exclusivity and the client adopts
// whatever list the backend returns.
type Address struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	IsDefault    bool   `json:"is_default"`
}

// AddressForm is the user-editable form state for create/update. It is kept
// separate from Address so autofill can distinguish "empty, fillable" from
// user-entered text.
type AddressForm struct {
	Label        string `json:"label"`
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	IsDefault    bool   `json:"is_default"`
}

// PostalAddress is the consumed contract of the postal-code lookup service.
type PostalAddress struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Complement   string `json:"complement"`
}
