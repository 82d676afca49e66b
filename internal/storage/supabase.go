package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

/*
Supabase wraps minimal calls to Supabase Storage REST API.

Notes on authorization:
- If you use a legacy service_role JWT, send both `apikey` and `Authorization: Bearer <token>`.
- If you use a Secret API Key (sb_secret_...) that is NOT a JWT, some setups do NOT require the
  Authorization header. In that case, remove the `Authorization` header lines below.
*/

type Supabase struct {
	baseURL string // e.g. https://<project>.supabase.co
	apiKey  string // service_role JWT or secret API key
	bucket  string
	client  *http.Client
}

// NewSupabase returns nil when SUPABASE_URL is unset; callers treat a nil
// client as "storage not configured" and fail their upload paths cleanly.
func NewSupabase() *Supabase {
	if os.Getenv("SUPABASE_URL") == "" {
		return nil
	}
	return &Supabase{
		baseURL: os.Getenv("SUPABASE_URL"),
		apiKey:  os.Getenv("SUPABASE_SERVICE_KEY"),
		bucket:  os.Getenv("SUPABASE_BUCKET"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Supabase) auth(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	// See header note at the top of the file.
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

// MakeObjectKey builds a per-owner object key: <scope>/<ownerID>/<ts>_<filename>.
// The timestamp prefix keeps repeated uploads of the same name from colliding.
func (s *Supabase) MakeObjectKey(scope, ownerID, filename string) string {
	return path.Join(scope, ownerID, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filename))
}

// Upload sends an object to: POST /storage/v1/object/{bucket}/{objectName}.
// With overwrite set, an existing object at the same key is replaced
// (x-upsert), which is what avatar re-uploads want.
func (s *Supabase) Upload(key string, r io.Reader, contentType string, size int64, overwrite bool) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequest(http.MethodPost, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if overwrite {
		req.Header.Set("x-upsert", "true")
	}
	s.auth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("supabase upload error: %s | %s", res.Status, string(body))
	}
	return nil
}

// PublicURL derives the public object URL for a key in a public bucket:
// {base}/storage/v1/object/public/{bucket}/{key}
func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, key)
}

// KeyFromPublicURL recovers the object key from a stored public URL by
// locating the bucket segment and taking everything after it. Returns ""
// when the URL does not reference this bucket.
func (s *Supabase) KeyFromPublicURL(url string) string {
	marker := "/" + s.bucket + "/"
	i := strings.Index(url, marker)
	if i < 0 {
		return ""
	}
	return url[i+len(marker):]
}

// Delete removes an object by key:
// DELETE /storage/v1/object/{bucket}/{objectName}
// This is idempotent: 404 is treated as success (already deleted).
func (s *Supabase) Delete(key string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	s.auth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("supabase delete error: %s | %s", res.Status, string(b))
	}
	return nil
}

// BulkDelete removes multiple objects in one call:
// POST /storage/v1/object/{bucket}/remove
// Body: {"prefixes": ["docs/<id>/a.pdf", "docs/<id>/b.pdf", ...]}
func (s *Supabase) BulkDelete(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/remove", s.baseURL, s.bucket)

	body, _ := json.Marshal(map[string][]string{"prefixes": keys})
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("supabase bulk delete error: %s | %s", res.Status, string(b))
	}
	return nil
}

// EnsureBucket checks the bucket exists and creates it (public) when missing:
// GET /storage/v1/bucket/{bucket}, then POST /storage/v1/bucket.
func (s *Supabase) EnsureBucket() error {
	getURL := fmt.Sprintf("%s/storage/v1/bucket/%s", s.baseURL, s.bucket)
	req, err := http.NewRequest(http.MethodGet, getURL, nil)
	if err != nil {
		return err
	}
	s.auth(req)

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("supabase bucket check error: %s", res.Status)
	}

	body, _ := json.Marshal(map[string]any{"id": s.bucket, "name": s.bucket, "public": true})
	createReq, err := http.NewRequest(http.MethodPost, s.baseURL+"/storage/v1/bucket", bytes.NewReader(body))
	if err != nil {
		return err
	}
	createReq.Header.Set("Content-Type", "application/json")
	s.auth(createReq)

	createRes, err := s.client.Do(createReq)
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.StatusCode >= 300 {
		b, _ := io.ReadAll(createRes.Body)
		return fmt.Errorf("supabase bucket create error: %s | %s", createRes.Status, string(b))
	}
	return nil
}
