package model

// Provider is a healthcare-provider record as ingested from a batch file.
// Stages receive it by value and never modify it.
type Provider struct {
	Name      string `json:"name"`
	NPI       string `json:"npi"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Specialty string `json:"specialty,omitempty"` // pre-existing, optional
}

// DisplayName returns the provider name or a placeholder for logging.
func (p Provider) DisplayName() string {
	if p.Name == "" {
		return "Unknown"
	}
	return p.Name
}
