package usecase

import (
	"fmt"

	"CropVol/internal/domain/models"
)

// Catalog holds the configured datasets in configuration order.
type Catalog struct {
	byName map[string]models.Dataset
	order  []string
}

func NewCatalog(datasets []models.Dataset) *Catalog {
	c := &Catalog{byName: make(map[string]models.Dataset, len(datasets))}
	for _, d := range datasets {
		if _, dup := c.byName[d.Name]; !dup {
			c.order = append(c.order, d.Name)
		}
		c.byName[d.Name] = d
	}
	return c
}

// Get returns the named dataset or a *models.DataAvailabilityError.
func (c *Catalog) Get(name string) (models.Dataset, error) {
	d, ok := c.byName[name]
	if !ok {
		return models.Dataset{}, &models.DataAvailabilityError{Resource: fmt.Sprintf("dataset %q", name)}
	}
	return d, nil
}

// Region returns the dataset after checking region is on its whitelist.
func (c *Catalog) Region(name, region string) (models.Dataset, error) {
	d, err := c.Get(name)
	if err != nil {
		return d, err
	}
	if !d.HasRegion(region) {
		return models.Dataset{}, &models.DataAvailabilityError{
			Resource: fmt.Sprintf("region %q in dataset %q", region, name),
		}
	}
	return d, nil
}

func (c *Catalog) List() []models.Dataset {
	out := make([]models.Dataset, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byName[n])
	}
	return out
}
