package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/utils"
)

// maxJSONBody borne les corps JSON, les uploads ont leur propre limite
const maxJSONBody = 1 << 20

// decodeJSON décode le corps de la requête. Retourne false et écrit l'erreur si invalide.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidJSONBody)
		return false
	}
	return true
}

// ClientKey identifie le poste client pour le limiteur de connexion.
// X-Forwarded-For n'est lu que derrière un proxy de confiance.
func ClientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get(constants.HeaderForwardedFor); forwarded != "" {
			if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
