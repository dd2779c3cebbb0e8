package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pizzeria/api/internal/database"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// menuFile is the YAML layout accepted by `seed menu`:
//
//	pizzas:
//	  - name: Margherita
//	    description: Tomato, mozzarella, basil
//	    prices: {S: 8.50, M: 10.50, L: 12.50}
//	    photo_url: https://example.com/margherita.png
type menuFile struct {
	Pizzas []menuPizza `yaml:"pizzas"`
}

type menuPizza struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Prices      map[string]string `yaml:"prices"`
	PhotoURL    string            `yaml:"photo_url"`
	PhotoPath   string            `yaml:"photo_path"`
}

// menuStore is satisfied by *database.Queries.
type menuStore interface {
	GetPizzaByName(ctx context.Context, name string) (database.Pizza, error)
	CreatePizza(ctx context.Context, arg database.CreatePizzaParams) (database.Pizza, error)
	UpdatePizza(ctx context.Context, arg database.UpdatePizzaParams) (database.Pizza, error)
}

func newMenuCmd(connect connectFunc) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Load pizzas from a YAML file, updating pizzas that already exist by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open menu: %w", err)
			}
			defer f.Close()

			menu, err := parseMenu(f)
			if err != nil {
				return err
			}

			return withQueries(cmd.Context(), connect, func(q *database.Queries) error {
				created, updated, err := seedMenu(cmd.Context(), q, menu)
				if err != nil {
					return err
				}
				zap.L().Info("menu seeded", zap.Int("created", created), zap.Int("updated", updated))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "menu.yaml", "Path to the menu YAML file")
	return cmd
}

func parseMenu(r io.Reader) (menuFile, error) {
	var menu menuFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&menu); err != nil {
		return menuFile{}, fmt.Errorf("decode menu: %w", err)
	}
	if len(menu.Pizzas) == 0 {
		return menuFile{}, errors.New("menu has no pizzas")
	}
	for i, p := range menu.Pizzas {
		if strings.TrimSpace(p.Name) == "" {
			return menuFile{}, fmt.Errorf("pizza %d: name is required", i+1)
		}
		for _, size := range []string{"S", "M", "L"} {
			if _, err := menuPrice(p, size); err != nil {
				return menuFile{}, fmt.Errorf("pizza %q: %w", p.Name, err)
			}
		}
	}
	return menu, nil
}

func menuPrice(p menuPizza, size string) (decimal.Decimal, error) {
	s, ok := p.Prices[size]
	if !ok {
		return decimal.Zero, fmt.Errorf("price for size %s is required", size)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("price for size %s must be a non-negative number", size)
	}
	if !database.FitsMoney(d) {
		return decimal.Zero, fmt.Errorf("price for size %s must be below %s with at most 2 decimal places", size, database.MaxMoney)
	}
	return d, nil
}

// seedMenu upserts every pizza in menu by name.
func seedMenu(ctx context.Context, store menuStore, menu menuFile) (created, updated int, err error) {
	for _, p := range menu.Pizzas {
		// parseMenu already checked the prices
		s, _ := menuPrice(p, "S")
		m, _ := menuPrice(p, "M")
		l, _ := menuPrice(p, "L")
		name := strings.TrimSpace(p.Name)

		existing, err := store.GetPizzaByName(ctx, name)
		switch {
		case err == nil:
			photoURL, photoPath := existing.PhotoUrl, existing.PhotoPath
			if p.PhotoURL != "" {
				photoURL, photoPath = p.PhotoURL, p.PhotoPath
			}
			_, err = store.UpdatePizza(ctx, database.UpdatePizzaParams{
				ID:          existing.ID,
				Name:        name,
				Description: p.Description,
				PriceSizeS:  database.DecimalToNumeric(s),
				PriceSizeM:  database.DecimalToNumeric(m),
				PriceSizeL:  database.DecimalToNumeric(l),
				PhotoUrl:    photoURL,
				PhotoPath:   photoPath,
			})
			if err != nil {
				return created, updated, fmt.Errorf("update pizza %q: %w", name, err)
			}
			updated++
		case errors.Is(err, pgx.ErrNoRows):
			_, err = store.CreatePizza(ctx, database.CreatePizzaParams{
				Name:        name,
				Description: p.Description,
				PriceSizeS:  database.DecimalToNumeric(s),
				PriceSizeM:  database.DecimalToNumeric(m),
				PriceSizeL:  database.DecimalToNumeric(l),
				PhotoUrl:    p.PhotoURL,
				PhotoPath:   p.PhotoPath,
			})
			if err != nil {
				return created, updated, fmt.Errorf("create pizza %q: %w", name, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("look up pizza %q: %w", name, err)
		}
	}
	return created, updated, nil
}
