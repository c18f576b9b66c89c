package model

import "github.com/m-mizutani/goerr/v2"

// Catalog is the static set of recommendable courses grouped by category.
// Categories and courses keep the order of the source document.
type Catalog struct {
	Categories []*Category `json:"categories" yaml:"categories"`
}

type Category struct {
	Name    string    `json:"name" yaml:"name"`
	URL     string    `json:"url,omitempty" yaml:"url,omitempty"`
	Courses []*Course `json:"courses" yaml:"courses"`
}

type Course struct {
	Title    string `json:"title" yaml:"title"`
	URL      string `json:"url" yaml:"url"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Price    string `json:"price,omitempty" yaml:"price,omitempty"`
	Modality string `json:"modality,omitempty" yaml:"modality,omitempty"`
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`
}

// CourseCount returns the number of courses over all categories
func (c *Catalog) CourseCount() int {
	if c == nil {
		return 0
	}

	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Courses)
	}
	return n
}

// Validate checks that every category has a name and every course has a
// title and a URL
func (c *Catalog) Validate() error {
	if c == nil || len(c.Categories) == 0 {
		return goerr.New("catalog has no categories")
	}

	for i, cat := range c.Categories {
		if cat == nil || cat.Name == "" {
			return goerr.New("category name is empty", goerr.V("index", i))
		}
		for j, course := range cat.Courses {
			if course == nil || course.Title == "" {
				return goerr.New("course title is empty", goerr.V("category", cat.Name), goerr.V("index", j))
			}
			if course.URL == "" {
				return goerr.New("course url is empty", goerr.V("category", cat.Name), goerr.V("course", course.Title))
			}
		}
	}

	return nil
}
