package models

// ErrorResponse représente une réponse d'erreur
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"` // détail par champ pour les erreurs de validation
}

// SuccessResponse représente une réponse de succès générique
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OKResponse est la réponse minimale attendue par le panneau admin
type OKResponse struct {
	OK bool `json:"ok"`
}
