package facilities

import "strings"

// FeatureAll selects every category.
const FeatureAll = "all"

// Tag is one OSM key=value pair.
type Tag struct {
	Key   string
	Value string
}

// Category is a kind of facility and the OSM tags that identify it.
type Category struct {
	Name string
	Tags []Tag
}

// Label is the human-readable category name, used when a facility has no
// name of its own.
func (c Category) Label() string {
	words := strings.Split(c.Name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if w == "of" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Matches reports whether an element's tags carry any of the category's
// tag pairs.
func (c Category) Matches(tags map[string]string) bool {
	for _, t := range c.Tags {
		if tags[t.Key] == t.Value {
			return true
		}
	}
	return false
}

// vocabulary is ordered by specificity: an element matching several
// requested categories lands in the first one.
var vocabulary = []Category{
	{Name: "shelter", Tags: []Tag{{"social_facility", "shelter"}}},
	{Name: "food_bank", Tags: []Tag{{"social_facility", "food_bank"}, {"amenity", "food_bank"}}},
	{Name: "soup_kitchen", Tags: []Tag{{"social_facility", "soup_kitchen"}, {"amenity", "soup_kitchen"}}},
	{Name: "clothing_bank", Tags: []Tag{{"social_facility", "clothing_bank"}, {"amenity", "clothes_bank"}}},
	{Name: "outreach", Tags: []Tag{{"social_facility", "outreach"}}},
	{Name: "shower", Tags: []Tag{{"amenity", "shower"}}},
	{Name: "toilets", Tags: []Tag{{"amenity", "toilets"}}},
	{Name: "drinking_water", Tags: []Tag{{"amenity", "drinking_water"}}},
	{Name: "water_tap", Tags: []Tag{{"man_made", "water_tap"}}},
	{Name: "laundry", Tags: []Tag{{"shop", "laundry"}}},
	{Name: "place_of_worship", Tags: []Tag{{"amenity", "place_of_worship"}}},
	{Name: "welfare", Tags: []Tag{{"amenity", "social_facility"}, {"office", "welfare"}}},
}

// Categories returns the vocabulary in priority order.
func Categories() []Category {
	return append([]Category(nil), vocabulary...)
}

func CategoryNames() []string {
	names := make([]string, len(vocabulary))
	for i, c := range vocabulary {
		names[i] = c.Name
	}
	return names
}

func LookupCategory(name string) (Category, bool) {
	for _, c := range vocabulary {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// selectCategories resolves a feature name to the categories it covers.
func selectCategories(feature string) ([]Category, bool) {
	feature = strings.ToLower(strings.TrimSpace(feature))
	if feature == "" || feature == FeatureAll {
		return Categories(), true
	}
	c, ok := LookupCategory(feature)
	if !ok {
		return nil, false
	}
	return []Category{c}, true
}

func firstMatch(cats []Category, tags map[string]string) (Category, bool) {
	for _, c := range cats {
		if c.Matches(tags) {
			return c, true
		}
	}
	return Category{}, false
}
