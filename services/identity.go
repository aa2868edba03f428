package services

import (
	"strings"

	"silver-jubilee-backend/models"
)

// Payload regroupe toutes les variantes de champs connues des réponses
// d'identité (Google Identity Services, Firebase, anciens clients).
// Un champ vide est considéré comme absent.
type Payload struct {
	Sub         string `json:"sub"`
	UID         string `json:"uid"`
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	GoogleID    string `json:"googleId"`
	Email       string `json:"email"`
	Mail        string `json:"mail"`
	UserEmail   string `json:"user_email"`
	Name        string `json:"name"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	Picture     string `json:"picture"`
	PhotoURL    string `json:"photoURL"`
	Avatar      string `json:"avatar"`
}

type alias func(Payload) string

// Ordre de priorité des alias, le premier non vide l'emporte
var (
	subjectAliases = []alias{
		func(p Payload) string { return p.Sub },
		func(p Payload) string { return p.UID },
		func(p Payload) string { return p.ID },
		func(p Payload) string { return p.UserID },
		func(p Payload) string { return p.GoogleID },
	}
	emailAliases = []alias{
		func(p Payload) string { return p.Email },
		func(p Payload) string { return p.Mail },
		func(p Payload) string { return p.UserEmail },
	}
	nameAliases = []alias{
		func(p Payload) string { return p.Name },
		func(p Payload) string { return p.FullName },
		func(p Payload) string { return p.DisplayName },
	}
	pictureAliases = []alias{
		func(p Payload) string { return p.Picture },
		func(p Payload) string { return p.PhotoURL },
		func(p Payload) string { return p.Avatar },
	}
)

func firstOf(p Payload, aliases []alias) string {
	for _, get := range aliases {
		if v := strings.TrimSpace(get(p)); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeEmail met un email sous sa forme canonique de stockage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize extrait une identité complète du payload.
// ok vaut false si le subject ou l'email manque: jamais d'identité partielle.
func Normalize(p Payload) (models.Identity, bool) {
	subject := firstOf(p, subjectAliases)
	email := NormalizeEmail(firstOf(p, emailAliases))
	if subject == "" || email == "" {
		return models.Identity{}, false
	}
	return models.Identity{
		SubjectID: subject,
		Email:     email,
		Name:      firstOf(p, nameAliases),
		Picture:   firstOf(p, pictureAliases),
	}, true
}

// PayloadOf reconstruit le payload canonique d'une identité
func PayloadOf(id models.Identity) Payload {
	return Payload{Sub: id.SubjectID, Email: id.Email, Name: id.Name, Picture: id.Picture}
}
