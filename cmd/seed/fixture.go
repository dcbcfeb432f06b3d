package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"servicecatalog.io/catalog/internal/model"
	apperrors "servicecatalog.io/catalog/internal/pkg/errors"
	"servicecatalog.io/catalog/internal/pkg/worker"
	"servicecatalog.io/catalog/internal/transfer"
)

type fixture struct {
	Categories []categoryFixture `yaml:"categories"`
}

type categoryFixture struct {
	Name          string               `yaml:"name"`
	SubCategories []subCategoryFixture `yaml:"subcategories"`
}

type subCategoryFixture struct {
	Name     string   `yaml:"name"`
	Services []string `yaml:"services"`
}

type seedCounts struct {
	Categories    int
	SubCategories int
	Services      int
}

func (c *seedCounts) add(o seedCounts) {
	c.Categories += o.Categories
	c.SubCategories += o.SubCategories
	c.Services += o.Services
}

func (c seedCounts) String() string {
	return fmt.Sprintf("categories=%d subcategories=%d services=%d", c.Categories, c.SubCategories, c.Services)
}

// catalogWriter is the part of the repository the seeder writes through.
type catalogWriter interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSubCategory(ctx context.Context, s *model.SubCategory) error
	CreateService(ctx context.Context, s *model.Service) error
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var f fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

func (f *fixture) counts() seedCounts {
	var c seedCounts
	for _, cat := range f.Categories {
		c.Categories++
		for _, sub := range cat.SubCategories {
			c.SubCategories++
			c.Services += len(sub.Services)
		}
	}
	return c
}

// validate runs every name through the transfer rules without touching storage.
// Foreign keys are placeholders; only the text fields are checked.
func (f *fixture) validate() error {
	var errs []error
	for i, cat := range f.Categories {
		at := fmt.Sprintf("categories[%d]", i)
		if _, fes := transfer.ToCategory(transfer.Payload{"category_name": cat.Name}); len(fes) > 0 {
			errs = append(errs, fieldErr(at, fes))
		}
		for j, sub := range cat.SubCategories {
			at := fmt.Sprintf("%s.subcategories[%d]", at, j)
			if _, fes := transfer.ToSubCategory(transfer.Payload{"category": 1, "subcategory_name": sub.Name}); len(fes) > 0 {
				errs = append(errs, fieldErr(at, fes))
			}
			for k, desc := range sub.Services {
				at := fmt.Sprintf("%s.services[%d]", at, k)
				if _, fes := transfer.ToService(transfer.Payload{"category": 1, "subcategory": 1, "description": desc}); len(fes) > 0 {
					errs = append(errs, fieldErr(at, fes))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func fieldErr(at string, fes []apperrors.FieldError) error {
	parts := make([]string, 0, len(fes))
	for _, fe := range fes {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Errorf("%s: %s", at, strings.Join(parts, "; "))
}

// seed writes each category subtree as one task on pool. Within a subtree rows
// are written depth-first, so every service's subcategory belongs to its category.
func seed(ctx context.Context, w catalogWriter, f *fixture, pool *worker.Pool) (seedCounts, error) {
	var (
		mu    sync.Mutex
		total seedCounts
	)
	batch := pool.NewBatch()
	for _, cf := range f.Categories {
		batch.Go(ctx, func(ctx context.Context) error {
			got, err := seedCategory(ctx, w, cf)
			mu.Lock()
			total.add(got)
			mu.Unlock()
			return err
		})
	}
	err := batch.Wait()
	return total, err
}

func seedCategory(ctx context.Context, w catalogWriter, cf categoryFixture) (seedCounts, error) {
	var got seedCounts

	cat, _ := transfer.ToCategory(transfer.Payload{"category_name": cf.Name})
	if err := w.CreateCategory(ctx, &cat); err != nil {
		return got, fmt.Errorf("create category %q: %w", cf.Name, err)
	}
	got.Categories++

	for _, sf := range cf.SubCategories {
		sub, _ := transfer.ToSubCategory(transfer.Payload{
			"category":         cat.ID,
			"subcategory_name": sf.Name,
		})
		if err := w.CreateSubCategory(ctx, &sub); err != nil {
			return got, fmt.Errorf("create subcategory %q: %w", sf.Name, err)
		}
		got.SubCategories++

		for _, desc := range sf.Services {
			svc, _ := transfer.ToService(transfer.Payload{
				"category":    cat.ID,
				"subcategory": sub.ID,
				"description": desc,
			})
			if err := w.CreateService(ctx, &svc); err != nil {
				return got, fmt.Errorf("create service %q: %w", desc, err)
			}
			got.Services++
		}
	}
	return got, nil
}
