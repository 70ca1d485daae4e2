// Package storage persists proof-of-payment images on local disk. The core
// only ever records the relative filename; serving the files is an external
// concern.
package storage

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrEmptyImage = errors.New("empty receipt image")

// ReceiptStore writes receipt images under a base directory
type ReceiptStore struct {
	baseDir string
}

// NewReceiptStore creates a receipt store rooted at baseDir
func NewReceiptStore(baseDir string) *ReceiptStore {
	return &ReceiptStore{baseDir: baseDir}
}

// SaveBase64 decodes a base64 payload (with or without a data-URL prefix)
// and writes it content-addressed under receipts/. Returns the relative
// filename recorded on the sale rows.
func (s *ReceiptStore) SaveBase64(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrEmptyImage
	}

	ext := ".jpg"
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		if strings.HasPrefix(payload, "data:image/png") {
			ext = ".png"
		}
		payload = payload[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode receipt image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	sum := sha256.Sum256(data)
	name := filepath.Join("receipts", time.Now().UTC().Format("2006/01"),
		hex.EncodeToString(sum[:16])+ext)

	full := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write receipt image: %w", err)
	}

	return filepath.ToSlash(name), nil
}

// Path resolves a stored relative filename to its absolute path
func (s *ReceiptStore) Path(name string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(name))
}

// Exists reports whether a stored receipt is present on disk
func (s *ReceiptStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}
