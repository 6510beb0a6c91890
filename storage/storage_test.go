package storage

import (
	"bytes"
	"context"
	"regexp"
	"testing"
)

func TestFSRoundTrip(t *testing.T) {
	store, err := NewFS(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	data := []byte("今天读完了一本书。")
	key, err := store.Save(data, "text/2026/08/abc.txt", "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if key != "text/2026/08/abc.txt" {
		t.Errorf("Expected requested key back, got %q", key)
	}

	got, err := store.Read(key)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read returned %q, want %q", got, data)
	}

	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Read(key); err == nil {
		t.Error("Expected read of deleted object to fail")
	}
}

func TestFSSaveAvoidsCollisions(t *testing.T) {
	store, err := NewFS(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	first, err := store.Save([]byte("one"), "html/2026/08/page.html", "text/html")
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	second, err := store.Save([]byte("two"), "html/2026/08/page.html", "text/html")
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	if first != "html/2026/08/page.html" {
		t.Errorf("Unexpected first key %q", first)
	}
	if second != "html/2026/08/page-1.html" {
		t.Errorf("Expected suffixed key, got %q", second)
	}

	got, err := store.Read(first)
	if err != nil || string(got) != "one" {
		t.Errorf("First object changed: %q, err=%v", got, err)
	}
}

func TestFSDeleteMissingIsNotAnError(t *testing.T) {
	store, err := NewFS(Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Delete("text/2026/01/nope.txt"); err != nil {
		t.Errorf("Expected nil for missing object, got %v", err)
	}
}

func TestKey(t *testing.T) {
	key := Key("images", "sunset", ".jpg")

	matched, err := regexp.MatchString(`^images/\d{4}/\d{2}/sunset\.jpg$`, key)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Errorf("Key() = %q, want images/YYYY/MM/sunset.jpg", key)
	}
}

func TestNewS3(t *testing.T) {
	config := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}

	store, err := NewS3(context.Background(), config)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if store == nil {
		t.Fatal("Expected storage to be non-nil")
	}
}

func TestNewS3InvalidConfig(t *testing.T) {
	valid := S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	}

	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
		{"missing region", func(c *S3Config) { c.Region = "" }},
		{"missing credentials", func(c *S3Config) { c.AccessKeyID = ""; c.SecretAccessKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			if _, err := NewS3(context.Background(), config); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"plain text", "text/plain", ".txt"},
		{"html", "text/html", ".html"},
		{"jpeg", "image/jpeg", ".jpg"},
		{"jpg", "image/jpg", ".jpg"},
		{"png", "image/png", ".png"},
		{"gif", "image/gif", ".gif"},
		{"webp", "image/webp", ".webp"},
		{"svg", "image/svg+xml", ".svg"},
		{"bmp", "image/bmp", ".bmp"},
		{"tiff", "image/tiff", ".tiff"},
		{"with charset", "text/html; charset=utf-8", ".html"},
		{"unknown", "application/x-mystery", ".bin"},
		{"empty", "", ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtensionForContentType(tt.contentType)
			if got != tt.want {
				t.Errorf("ExtensionForContentType(%q) = %q, want %q", tt.contentType, got, tt.want)
			}
		})
	}
}
