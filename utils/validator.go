package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	contactRegex  = regexp.MustCompile(`^[0-9]{10}$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	linkedinRegex = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[a-zA-Z0-9-]+/?$`)
)

// Validator enveloppe validator/v10 et produit des erreurs indexées par champ.
// Les clés suivent le tag `key` des structs validées, les éléments de slice
// deviennent `<slice>_<index>_<champ>` (ex: family_0_name).
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

// NewValidator crée un validateur avec les règles du formulaire d'inscription.
// batchAllowed porte la règle d'admission, batchMessage le message associé.
func NewValidator(batchAllowed func(string) bool, batchMessage string) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("key"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		return contactRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("linkedin", func(fl validator.FieldLevel) bool {
		return linkedinRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("batch", func(fl validator.FieldLevel) bool {
		return batchAllowed(fl.Field().String())
	})

	return &Validator{
		validate: v,
		messages: map[string]string{
			"name.required":      "Name is required",
			"batch.required":     "Batch is required",
			"batch.batch":        batchMessage,
			"contact.required":   "Contact number is required",
			"contact.contact":    "Contact number must be exactly 10 digits",
			"email.required":     "Email is required",
			"email.simple_email": "Enter a valid email address",
			"linkedin.linkedin":  "Enter a valid LinkedIn profile URL",
			"relation.required":  "Relation is required",
		},
	}
}

// ValidateStruct valide s et retourne toutes les erreurs, nil si tout est valide
func (v *Validator) ValidateStruct(s interface{}) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(vErrors))
	for _, fe := range vErrors {
		key := fieldKey(fe.Namespace())
		if _, exists := fields[key]; exists {
			continue // premier échec par champ
		}
		fields[key] = v.message(key, fe)
	}
	return fields
}

func (v *Validator) message(key string, fe validator.FieldError) string {
	leaf, indexed := key, false
	if parts := strings.Split(key, "_"); len(parts) == 3 && isDigits(parts[1]) {
		leaf, indexed = parts[2], true
	}
	if indexed && leaf == "name" && fe.Tag() == "required" {
		return "Family member name is required"
	}
	if msg, ok := v.messages[leaf+"."+fe.Tag()]; ok {
		return msg
	}
	return "Invalid value"
}

// fieldKey transforme "RegistrationForm.family[0].name" en "family_0_name"
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	r := strings.NewReplacer("[", "_", "].", "_", "]", "", ".", "_")
	return r.Replace(namespace)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// IsValidEmail vérifie le format d'un email hors formulaire
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}
