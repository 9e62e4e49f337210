package trials

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Image is a single stimulus. Categories run from most specific (level 0,
// e.g. "Canidae") to least specific (level 1, e.g. "Mammals").
type Image struct {
	Name       string
	Categories []string
	Path       string
}

func (img *Image) Level0() string { return img.category(0) }
func (img *Image) Level1() string { return img.category(1) }

func (img *Image) category(level int) string {
	if level < len(img.Categories) {
		return img.Categories[level]
	}
	return ""
}

// Label is the interest-area name used by eye trackers: "<level0>.<name>".
func (img *Image) Label() string {
	return img.Level0() + "." + img.Name
}

// Catalog is a read-only index over the loaded images. Trials hold pointers
// into it.
type Catalog struct {
	images []*Image
	byName map[string]*Image
}

func NewCatalog(images []Image) *Catalog {
	c := &Catalog{
		images: make([]*Image, 0, len(images)),
		byName: make(map[string]*Image, len(images)),
	}
	for i := range images {
		img := images[i]
		if _, ok := c.byName[img.Name]; ok {
			continue
		}
		p := &img
		c.images = append(c.images, p)
		c.byName[img.Name] = p
	}
	return c
}

func (c *Catalog) Len() int { return len(c.images) }

func (c *Catalog) Images() []*Image {
	return append([]*Image(nil), c.images...)
}

func (c *Catalog) Lookup(name string) (*Image, bool) {
	img, ok := c.byName[name]
	return img, ok
}

// Names returns every image name, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.images))
	for _, img := range c.images {
		names = append(names, img.Name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Filter(keep func(*Image) bool) []*Image {
	var out []*Image
	for _, img := range c.images {
		if keep(img) {
			out = append(out, img)
		}
	}
	return out
}

func (c *Catalog) FilterByLevel0(label string) []*Image {
	return c.Filter(func(img *Image) bool { return img.Level0() == label })
}

// GroupByLevel1 buckets the images passing keep by their coarse category.
// The result is recomputed on every call.
func (c *Catalog) GroupByLevel1(keep func(*Image) bool) map[string][]*Image {
	groups := make(map[string][]*Image)
	for _, img := range c.images {
		if keep != nil && !keep(img) {
			continue
		}
		groups[img.Level1()] = append(groups[img.Level1()], img)
	}
	return groups
}

// Level0Labels lists the distinct fine categories present, sorted.
func (c *Catalog) Level0Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, img := range c.images {
		if !seen[img.Level0()] {
			seen[img.Level0()] = true
			labels = append(labels, img.Level0())
		}
	}
	sort.Strings(labels)
	return labels
}

// LoadDir walks root for .jpg files laid out as .../<level1>/<level0>/<name>.jpg.
func LoadDir(root string) (*Catalog, error) {
	var images []Image
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".jpg") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}
		images = append(images, Image{
			Name:       strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(d.Name())),
			Categories: []string{parts[len(parts)-2], parts[len(parts)-3]},
			Path:       path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Path < images[j].Path })
	return NewCatalog(images), nil
}
