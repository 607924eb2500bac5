package domain

// Speaker is one entry of the speaker registry loaded from speakers.json.
// Only DisplayName, Role, Organization, Industry, and Region are required;
// the remaining fields mirror optional biography fields from the original
// speaker records.
type Speaker struct {
	DisplayName    string   `json:"display_name" yaml:"display_name"`
	Role           string   `json:"role" yaml:"role"`
	Organization   string   `json:"organization" yaml:"organization"`
	Industry       string   `json:"industry" yaml:"industry"`
	Region         string   `json:"region" yaml:"region"`
	DateOfBirth    string   `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	Bio            string   `json:"bio,omitempty" yaml:"bio,omitempty"`
	InfluenceScore *float64 `json:"influence_score,omitempty" yaml:"influence_score,omitempty"`
}
