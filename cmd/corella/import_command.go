package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"corella/internal/config"
	"corella/internal/ledger"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var observedPath string
	var registryPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load observed records and register entities from JSONL files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if observedPath == "" && registryPath == "" {
				return fmt.Errorf("nothing to import: pass --observed and/or --registry")
			}

			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				out := cmd.OutOrStdout()

				if registryPath != "" {
					count, err := importRegistry(cmd.Context(), store, registryPath)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Imported %d register entities from %s\n", count, registryPath)
				}
				if observedPath != "" {
					count, err := importObserved(cmd.Context(), store, observedPath)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Imported %d observed records from %s\n", count, observedPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&observedPath, "observed", "", "JSONL file of scraped company records")
	cmd.Flags().StringVar(&registryPath, "registry", "", "JSONL file of business register entities")
	return cmd
}

type observedLine struct {
	Name         string `json:"name"`
	Industry     string `json:"industry"`
	Context      string `json:"context"`
	SourceURL    string `json:"source_url"`
	ExtractedABN string `json:"extracted_abn"`
	State        string `json:"state"`
}

type registryLine struct {
	ABN          string `json:"abn"`
	Name         string `json:"name"`
	EntityType   string `json:"entity_type"`
	Status       string `json:"status"`
	Address      string `json:"address"`
	State        string `json:"state"`
	RegisteredAt string `json:"registered_at"`
}

func importObserved(ctx context.Context, store *ledger.Store, path string) (int, error) {
	count := 0
	err := eachJSONLine(path, func(lineNo int, data []byte) error {
		var line observedLine
		if err := json.Unmarshal(data, &line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if strings.TrimSpace(line.Name) == "" {
			return fmt.Errorf("%s:%d: missing name", path, lineNo)
		}
		rec := &ledger.ObservedRecord{
			Name:         line.Name,
			Industry:     line.Industry,
			Context:      line.Context,
			SourceURL:    line.SourceURL,
			ExtractedABN: line.ExtractedABN,
			State:        line.State,
		}
		if _, err := store.InsertObserved(ctx, rec); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		count++
		return nil
	})
	return count, err
}

func importRegistry(ctx context.Context, store *ledger.Store, path string) (int, error) {
	count := 0
	err := eachJSONLine(path, func(lineNo int, data []byte) error {
		var line registryLine
		if err := json.Unmarshal(data, &line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		entity := &ledger.RegistryEntity{
			ABN:     line.ABN,
			Name:    line.Name,
			Type:    line.EntityType,
			Status:  line.Status,
			Address: line.Address,
			State:   line.State,
		}
		if entity.Status == "" {
			entity.Status = "Active"
		}
		if line.RegisteredAt != "" {
			registered, err := time.Parse("2006-01-02", line.RegisteredAt)
			if err != nil {
				return fmt.Errorf("%s:%d: parse registered_at: %w", path, lineNo, err)
			}
			entity.Registered = registered
		}
		if err := store.UpsertEntity(ctx, entity); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		count++
		return nil
	})
	return count, err
}

func eachJSONLine(path string, fn func(lineNo int, data []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		data := strings.TrimSpace(scanner.Text())
		if data == "" {
			continue
		}
		if err := fn(lineNo, []byte(data)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
