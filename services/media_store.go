package services

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/config"
)

// Erreurs de contrôle d'un fichier, détectées avant tout appel réseau
var (
	ErrMediaEmpty       = errors.New("file is empty")
	ErrMediaTooLarge    = errors.New("file is too large")
	ErrMediaUnsupported = errors.New("unsupported file type")
)

// ErrStorageFailed masque les détails du fournisseur
var ErrStorageFailed = apperrors.Clone(apperrors.ErrUpstream, "Storage failed")

// AllowedImageTypes liste les types MIME acceptés
var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/jpg", "image/webp", "image/gif"}

// UploadResult est le résultat d'un upload réussi
type UploadResult struct {
	URL        string
	ExternalID string
}

// MediaStore stocke les fichiers binaires hors de la base
type MediaStore interface {
	Check(data []byte, contentType string) error
	Upload(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error)
	Delete(ctx context.Context, externalID string) error
}

// CloudinaryStore parle à l'API REST Cloudinary avec des requêtes signées.
// Sa configuration est figée à la construction.
type CloudinaryStore struct {
	cfg    config.MediaConfig
	client *http.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewCloudinaryStore crée le store. Sans identifiants, chaque upload échoue
// avec ErrStorageFailed et un avertissement est journalisé au démarrage.
func NewCloudinaryStore(cfg config.MediaConfig, log *zap.Logger) *CloudinaryStore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 << 20
	}
	s := &CloudinaryStore{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		now:    time.Now,
	}
	if !s.Configured() {
		log.Warn("⚠️  Cloudinary non configuré - les uploads seront refusés")
	}
	return s
}

// Configured indique si les identifiants Cloudinary sont présents
func (s *CloudinaryStore) Configured() bool {
	return s.cfg.CloudName != "" && s.cfg.APIKey != "" && s.cfg.APISecret != ""
}

// MaxBytes retourne la taille maximale acceptée
func (s *CloudinaryStore) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// Check contrôle taille et type réel du contenu.
// Le type déclaré doit être autorisé s'il est fourni, le type détecté toujours.
func (s *CloudinaryStore) Check(data []byte, contentType string) error {
	if len(data) == 0 {
		return ErrMediaEmpty
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return ErrMediaTooLarge
	}
	if declared := baseMediaType(contentType); declared != "" && !isAllowedImageType(declared) {
		return ErrMediaUnsupported
	}
	if !isAllowedImageType(baseMediaType(mimetype.Detect(data).String())) {
		return ErrMediaUnsupported
	}
	return nil
}

// cloudinaryUploadResponse représente la réponse de Cloudinary
type cloudinaryUploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int    `json:"bytes"`
}

// Upload envoie le fichier dans <racine>/<folder>
func (s *CloudinaryStore) Upload(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error) {
	if err := s.Check(data, contentType); err != nil {
		return nil, err
	}
	if !s.Configured() {
		return nil, ErrStorageFailed
	}

	params := map[string]string{
		"folder":    s.folder(folder),
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "upload")
	if err != nil {
		return nil, s.fail("création du formulaire", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, s.fail("écriture du fichier", err)
	}
	for key, value := range s.signed(params) {
		if err := writer.WriteField(key, value); err != nil {
			return nil, s.fail("écriture du champ "+key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, s.fail("fermeture du formulaire", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("upload"), body)
	if err != nil {
		return nil, s.fail("création de la requête", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var uploaded cloudinaryUploadResponse
	if err := s.do(req, &uploaded); err != nil {
		return nil, err
	}
	if uploaded.SecureURL == "" || uploaded.PublicID == "" {
		return nil, s.fail("réponse incomplète", errors.New("secure_url ou public_id manquant"))
	}

	s.log.Info("✅ Upload Cloudinary réussi", zap.String("public_id", uploaded.PublicID), zap.Int("bytes", uploaded.Bytes))
	return &UploadResult{URL: uploaded.SecureURL, ExternalID: uploaded.PublicID}, nil
}

// Delete supprime le fichier distant. Un fichier déjà absent n'est pas une erreur.
func (s *CloudinaryStore) Delete(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	if !s.Configured() {
		return ErrStorageFailed
	}

	form := url.Values{}
	for key, value := range s.signed(map[string]string{
		"public_id": externalID,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}) {
		form.Set(key, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("destroy"), strings.NewReader(form.Encode()))
	if err != nil {
		return s.fail("création de la requête", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var destroyed struct {
		Result string `json:"result"`
	}
	if err := s.do(req, &destroyed); err != nil {
		return err
	}
	if destroyed.Result != "ok" && destroyed.Result != "not found" {
		return s.fail("suppression refusée", fmt.Errorf("result=%s", destroyed.Result))
	}
	return nil
}

func (s *CloudinaryStore) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail("appel Cloudinary", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.log.Error("❌ Cloudinary error", zap.Int("status", resp.StatusCode), zap.ByteString("body", bodyBytes))
		return ErrStorageFailed
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return s.fail("décodage de la réponse", err)
	}
	return nil
}

func (s *CloudinaryStore) fail(step string, err error) error {
	s.log.Error("❌ Erreur media store", zap.String("etape", step), zap.Error(err))
	return ErrStorageFailed
}

func (s *CloudinaryStore) endpoint(action string) string {
	return fmt.Sprintf("%s/v1_1/%s/image/%s", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.CloudName, action)
}

func (s *CloudinaryStore) folder(sub string) string {
	root := strings.Trim(s.cfg.RootFolder, "/")
	sub = strings.Trim(sub, "/")
	switch {
	case root == "":
		return sub
	case sub == "":
		return root
	default:
		return root + "/" + sub
	}
}

// signed ajoute api_key et signature aux paramètres
func (s *CloudinaryStore) signed(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	out["signature"] = cloudinarySignature(params, s.cfg.APISecret)
	out["api_key"] = s.cfg.APIKey
	return out
}

// cloudinarySignature calcule sha1("k1=v1&k2=v2" + secret) sur les clés triées
func cloudinarySignature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func baseMediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func isAllowedImageType(contentType string) bool {
	for _, allowed := range AllowedImageTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// DecodeDataURL décode une image envoyée en data URL base64
// (data:image/png;base64,...), utilisée par l'ancien panneau admin.
func DecodeDataURL(raw string) ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(raw, prefix) {
		return nil, "", ErrMediaUnsupported
	}
	header, encoded, found := strings.Cut(raw[len(prefix):], ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrMediaUnsupported
	}
	contentType := strings.TrimSuffix(header, ";base64")
	if !isAllowedImageType(baseMediaType(contentType)) {
		return nil, "", ErrMediaUnsupported
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: base64 invalide", ErrMediaUnsupported)
	}
	return data, contentType, nil
}
