package data

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestDefaultSchema_Loads(t *testing.T) {
	s, err := DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}

	tests := []struct {
		file, want string
	}{
		{"qry_graph_data_73.csv", "compass"},
		{"qry_graph_data_76.csv", "compass_category"},
		{"signal_box.csv", "signal_box"},
		{"model_score_qtd_change.csv", "model_score_period"},
	}
	for _, tt := range tests {
		ds := s.For(tt.file)
		if ds == nil {
			t.Errorf("%s: expected a dataset", tt.file)
			continue
		}
		if ds.Name != tt.want {
			t.Errorf("%s: dataset %q, want %q", tt.file, ds.Name, tt.want)
		}
	}
	if s.For("unknown.csv") != nil {
		t.Error("expected unknown files to be ungoverned")
	}
	if !slices.Contains(s.Files(), "ticker_data.csv") {
		t.Error("expected ticker_data.csv in the schema files")
	}
}

func TestGraphFile(t *testing.T) {
	if got := GraphFile(1); got != "qry_graph_data_01.csv" {
		t.Errorf("GraphFile(1) = %s", got)
	}
	if got := GraphFile(88); got != "qry_graph_data_88.csv" {
		t.Errorf("GraphFile(88) = %s", got)
	}
}

func TestParseSchema_RejectsDuplicateFiles(t *testing.T) {
	_, err := ParseSchema([]byte(`
datasets:
  a:
    graphs: [1]
  b:
    files: [qry_graph_data_01.csv]
`))
	if err == nil || !strings.Contains(err.Error(), "already claimed") {
		t.Errorf("expected duplicate file error, got %v", err)
	}
}

func TestParseSchema_RejectsEmptyDataset(t *testing.T) {
	if _, err := ParseSchema([]byte("datasets:\n  a:\n    required: [Ticker]\n")); err == nil {
		t.Error("expected an error for a dataset without files")
	}
	if _, err := ParseSchema([]byte("aliases: {}\n")); err == nil {
		t.Error("expected an error for a schema without datasets")
	}
}

func TestDataset_ResolveAliases(t *testing.T) {
	s, err := DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}

	tests := []struct {
		name   string
		file   string
		header []string
		want   []string
	}{
		{
			name:   "weekly compass columns",
			file:   GraphFile(78),
			header: []string{"Date", "Ticker", "Ticker_name", "Close", "weekly_Return", "week_pr_low", "week_pr_high", "week_rr_ratio", "model_score", "model_score_delta"},
			want:   []string{"Date", "Ticker", "Ticker_name", "Close", "ret", "pr_low", "pr_high", "rr", "model_score", "model_score_delta"},
		},
		{
			name:   "overview lower-case headers",
			file:   GraphFile(26),
			header: []string{"as_of_date", "ticker", "company", "exposure", "daily_return_pct"},
			want:   []string{"Date", "Ticker", "Ticker_name", "Category", "Percent"},
		},
		{
			name:   "canonical header wins over alias",
			file:   GraphFile(28),
			header: []string{"Ticker", "Shares", "value"},
			want:   []string{"Ticker", "Shares", "value"},
		},
		{
			name:   "case-insensitive canonical",
			file:   GraphFile(29),
			header: []string{"TICKER", "score"},
			want:   []string{"Ticker", "Score"},
		},
		{
			name:   "ungoverned file is untouched",
			file:   "other.csv",
			header: []string{"ticker"},
			want:   []string{"ticker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.For(tt.file).Resolve(append([]string(nil), tt.header...))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDataset_Check(t *testing.T) {
	s, err := DefaultSchema()
	if err != nil {
		t.Fatalf("DefaultSchema: %v", err)
	}

	err = s.For(GraphFile(88)).Check([]string{"Date", "Ticker"})
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if !strings.Contains(err.Error(), "st_trend") {
		t.Errorf("expected missing column named, got %v", err)
	}

	var none *Dataset
	if err := none.Check(nil); err != nil {
		t.Errorf("ungoverned files always pass, got %v", err)
	}
}
