// Package provision prepares a registry for sync: it ensures the category,
// manufacturer, model and custom fields exist and reports their ids.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DrSkyle/snipesync/pkg/fieldmap"
	"github.com/DrSkyle/snipesync/pkg/snipeit"
)

// Names of the fixed registry objects.
const (
	CategoryName     = "Cloud Infrastructure"
	CategoryType     = "asset"
	ManufacturerName = "Amazon Web Services"
	ManufacturerURL  = "https://aws.amazon.com"
	ModelName        = "EC2 Instance"
	ModelNumber      = "EC2"
)

// Registry is the subset of the registry client used for provisioning.
type Registry interface {
	ListCategories(ctx context.Context) ([]snipeit.Entity, error)
	CreateCategory(ctx context.Context, body snipeit.Category) (snipeit.Entity, error)
	ListManufacturers(ctx context.Context) ([]snipeit.Entity, error)
	CreateManufacturer(ctx context.Context, body snipeit.Manufacturer) (snipeit.Entity, error)
	ListModels(ctx context.Context) ([]snipeit.Entity, error)
	CreateModel(ctx context.Context, body snipeit.Model) (snipeit.Entity, error)
	ListFields(ctx context.Context) ([]snipeit.Field, error)
	CreateField(ctx context.Context, body snipeit.FieldRequest) (snipeit.Field, error)
}

// FieldResult is the state of one custom field after provisioning.
type FieldResult struct {
	Key     fieldmap.Key
	Name    string
	ID      int
	Column  string
	Created bool
	Err     error
}

// Result holds the ids to paste into configuration.
type Result struct {
	CategoryID     int
	ManufacturerID int
	ModelID        int
	Fields         []FieldResult
}

// Failed returns the fields that could not be created.
func (r Result) Failed() []FieldResult {
	var out []FieldResult
	for _, f := range r.Fields {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Provisioner runs the provisioning steps against a registry.
type Provisioner struct {
	Registry Registry
	Logger   *slog.Logger
}

func (p *Provisioner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run ensures every object exists. A failure on the category, manufacturer or
// model aborts; a failing field is recorded and the rest continue.
func (p *Provisioner) Run(ctx context.Context) (Result, error) {
	var res Result
	log := p.logger()

	cat, err := ensure(ctx, CategoryName, p.Registry.ListCategories, func(ctx context.Context) (snipeit.Entity, error) {
		return p.Registry.CreateCategory(ctx, snipeit.Category{Name: CategoryName, CategoryType: CategoryType})
	})
	if err != nil {
		return res, fmt.Errorf("category %q: %w", CategoryName, err)
	}
	res.CategoryID = cat.ID
	log.Info("Category ready", "name", CategoryName, "id", cat.ID)

	mfr, err := ensure(ctx, ManufacturerName, p.Registry.ListManufacturers, func(ctx context.Context) (snipeit.Entity, error) {
		return p.Registry.CreateManufacturer(ctx, snipeit.Manufacturer{Name: ManufacturerName, URL: ManufacturerURL})
	})
	if err != nil {
		return res, fmt.Errorf("manufacturer %q: %w", ManufacturerName, err)
	}
	res.ManufacturerID = mfr.ID
	log.Info("Manufacturer ready", "name", ManufacturerName, "id", mfr.ID)

	model, err := ensure(ctx, ModelName, p.Registry.ListModels, func(ctx context.Context) (snipeit.Entity, error) {
		return p.Registry.CreateModel(ctx, snipeit.Model{
			Name:           ModelName,
			ManufacturerID: mfr.ID,
			CategoryID:     cat.ID,
			ModelNumber:    ModelNumber,
		})
	})
	if err != nil {
		return res, fmt.Errorf("model %q: %w", ModelName, err)
	}
	res.ModelID = model.ID
	log.Info("Model ready", "name", ModelName, "id", model.ID)

	existing, err := p.Registry.ListFields(ctx)
	if err != nil {
		return res, fmt.Errorf("list fields: %w", err)
	}
	byName := make(map[string]snipeit.Field, len(existing))
	for _, f := range existing {
		byName[strings.ToLower(strings.TrimSpace(f.Name))] = f
	}

	for i, def := range fieldmap.Definitions {
		fr := FieldResult{Key: def.Key, Name: def.Name}
		if f, ok := byName[strings.ToLower(def.Name)]; ok {
			fr.ID, fr.Column = f.ID, f.Column()
			res.Fields = append(res.Fields, fr)
			log.Debug("Field exists", "name", def.Name, "id", f.ID)
			continue
		}

		created, err := p.Registry.CreateField(ctx, snipeit.FieldRequest{
			Name:           def.Name,
			Element:        def.Element,
			Format:         def.Format,
			ShowInListView: i < fieldmap.ListViewCount,
		})
		if err != nil {
			fr.Err = err
			res.Fields = append(res.Fields, fr)
			log.Error("Field creation failed", "name", def.Name, "error", err)
			continue
		}
		if created.Name == "" {
			created.Name = def.Name
		}
		fr.ID, fr.Column, fr.Created = created.ID, created.Column(), true
		res.Fields = append(res.Fields, fr)
		log.Info("Field created", "name", def.Name, "id", created.ID)
	}

	return res, nil
}

func ensure(
	ctx context.Context,
	name string,
	list func(context.Context) ([]snipeit.Entity, error),
	create func(context.Context) (snipeit.Entity, error),
) (snipeit.Entity, error) {
	items, err := list(ctx)
	if err != nil {
		return snipeit.Entity{}, fmt.Errorf("list: %w", err)
	}
	for _, it := range items {
		if it.Name == name {
			return it, nil
		}
	}
	created, err := create(ctx)
	if err != nil {
		return snipeit.Entity{}, fmt.Errorf("create: %w", err)
	}
	if created.ID <= 0 {
		return snipeit.Entity{}, fmt.Errorf("create: registry returned no id")
	}
	return created, nil
}
