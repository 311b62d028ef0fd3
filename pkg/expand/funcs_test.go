package expand

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/microsoftarchive/night-shift/pkg/api"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		dialect api.Dialect
		parts   []string
		want    string
	}{
		{api.Postgres, []string{"events"}, `"events"`},
		{api.Postgres, []string{"public.events"}, `"public"."events"`},
		{api.Redshift, []string{"odd\"name"}, `"odd""name"`},
		{api.MySQL, []string{"shop", "orders"}, "`shop`.`orders`"},
		{api.MySQL, []string{"we`ird"}, "`we``ird`"},
		{api.MSSQL, []string{"dbo.users"}, "[dbo].[users]"},
		{api.MSSQL, []string{"a]b"}, "[a]]b]"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+strings.Join(tt.parts, ","), func(t *testing.T) {
			if got := QuoteIdent(tt.dialect, tt.parts...); got != tt.want {
				t.Errorf("QuoteIdent() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAWSCredentials_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid json", "{nope", "invalid JSON"},
		{"missing secret", `{"aws_access_key_id": "A"}`, "are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, AWSCredentialsFile), []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := AWSCredentials(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
