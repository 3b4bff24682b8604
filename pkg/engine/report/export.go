package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DrSkyle/snipesync/pkg/storage"
)

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, r *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes one row per asset result.
func WriteCSV(w io.Writer, r *Run) error {
	cw := csv.NewWriter(w)

	header := []string{"AssetTag", "Account", "Region", "State", "Action", "Outcome", "RegistryID", "Reason", "Error"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range r.Assets {
		id := ""
		if a.RegistryID > 0 {
			id = strconv.Itoa(a.RegistryID)
		}
		record := []string{
			a.AssetTag,
			a.Account,
			a.Region,
			string(a.State),
			string(a.Action),
			string(a.Outcome),
			id,
			a.Reason,
			a.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save stores the JSON report and a CSV companion, returning the JSON key.
func Save(ctx context.Context, store storage.BlobStore, r *Run) (string, error) {
	var js bytes.Buffer
	if err := WriteJSON(&js, r); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := r.Key()
	if err := store.Put(ctx, key, js.Bytes()); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	var cs bytes.Buffer
	if err := WriteCSV(&cs, r); err != nil {
		return key, fmt.Errorf("encode csv: %w", err)
	}
	if err := store.Put(ctx, strings.TrimSuffix(key, ".json")+".csv", cs.Bytes()); err != nil {
		return key, fmt.Errorf("store csv: %w", err)
	}
	return key, nil
}
