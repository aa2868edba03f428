package models

// Identity est l'identité normalisée d'un utilisateur Google.
// SubjectID et Email sont toujours renseignés.
type Identity struct {
	SubjectID string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// GoogleAuthRequest porte le credential renvoyé par Google Identity Services
type GoogleAuthRequest struct {
	Credential string `json:"credential"`
}

// AuthResponse représente la réponse d'authentification
type AuthResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
