package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinAdminPasswordLength est la longueur minimale d'un mot de passe admin
const MinAdminPasswordLength = 10

// dummyHash sert à comparer quand l'utilisateur n'existe pas,
// pour que les deux cas d'échec prennent le même temps.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("silver-jubilee-placeholder"), bcrypt.DefaultCost)

// HashPassword hache un mot de passe en utilisant bcrypt
func HashPassword(password string) (string, error) {
	if len(password) < MinAdminPasswordLength {
		return "", fmt.Errorf("le mot de passe doit contenir au moins %d caractères", MinAdminPasswordLength)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword vérifie si un mot de passe correspond à son hash.
// Un hash vide est comparé au hash factice et échoue toujours.
func CheckPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
