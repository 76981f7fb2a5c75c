package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// documentsTable - таблица вида (name text primary key, payload jsonb)
const documentsTable = "bot_documents"

type documentRow struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// SupabaseDocuments хранит каждый документ одной строкой в Supabase
type SupabaseDocuments struct {
	client *supabase.Client
}

func NewSupabaseDocuments(url, key string) (*SupabaseDocuments, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseDocuments{
		client: client,
	}, nil
}

func (d *SupabaseDocuments) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := d.client.From(documentsTable).
		Select("name,payload", "", false).
		Eq("name", name).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", name, err)
	}

	var rows []documentRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", name, err)
	}
	if len(rows) == 0 || len(rows[0].Payload) == 0 || string(rows[0].Payload) == "null" {
		return nil, nil
	}
	return rows[0].Payload, nil
}

func (d *SupabaseDocuments) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := documentRow{Name: name, Payload: json.RawMessage(data)}
	_, _, err := d.client.From(documentsTable).
		Insert(row, true, "name", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", name, err)
	}
	return nil
}
