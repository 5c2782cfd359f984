package core

import (
	"context"
	"strings"
)

// DescriptorCategory names one reference segment of a composite descriptor.
type DescriptorCategory string

const (
	CategoryClient      DescriptorCategory = "client"
	CategoryFormat      DescriptorCategory = "format"
	CategoryObjective   DescriptorCategory = "objective"
	CategoryAppeal      DescriptorCategory = "appeal"
	CategoryPersona     DescriptorCategory = "persona"
	CategoryArea        DescriptorCategory = "area"
	CategoryProduct     DescriptorCategory = "product"
	CategorySubproduct  DescriptorCategory = "subproduct"
	CategorySeasonality DescriptorCategory = "seasonality"
)

// DescriptorSeparator joins descriptor segments.
const DescriptorSeparator = "_"

// descriptorOrder is the fixed segment order after the date and id tokens.
// Subproduct is folded into the product segment.
var descriptorOrder = []DescriptorCategory{
	CategoryClient,
	CategoryFormat,
	CategoryObjective,
	CategoryAppeal,
	CategoryPersona,
	CategoryArea,
	CategoryProduct,
	CategorySeasonality,
}

// resolvedCategories fixes lookup order so warnings are deterministic.
var resolvedCategories = append(append([]DescriptorCategory{}, descriptorOrder...), CategorySubproduct)

// RefPart is what a descriptor needs from one resolved category.
type RefPart struct {
	Code    string
	Name    string
	TeamIDs []string
}

// Segment returns the code, else the name, else "".
func (p RefPart) Segment() string {
	if c := strings.TrimSpace(p.Code); c != "" {
		return c
	}
	return strings.TrimSpace(p.Name)
}

// DescriptorRefs holds the resolved parts by category. Missing categories
// contribute empty segments.
type DescriptorRefs map[DescriptorCategory]RefPart

// DescriptorSource says where a category's raw value lives in a submission
// and which board resolves it. An empty BoardID keeps the raw value.
type DescriptorSource struct {
	Path    string
	BoardID string
}

// BuildDescriptor assembles the composite descriptor of a submission:
// YYYYMMDD, id-<submission id>, then one segment per category.
// It never fails; the result always carries the date and id tokens.
func BuildDescriptor(sub Submission, refs DescriptorRefs) string {
	parts := make([]string, 0, len(descriptorOrder)+2)
	parts = append(parts, sub.CreatedAt.Format("20060102"), "id-"+sub.ID)

	for _, cat := range descriptorOrder {
		seg := refs[cat].Segment()
		if cat == CategoryProduct {
			if sp := refs[CategorySubproduct].Segment(); sp != "" {
				if seg == "" {
					seg = sp
				} else {
					seg = seg + "_" + sp
				}
			}
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, DescriptorSeparator)
}

// ResolveDescriptorRefs looks up every configured category. A failed lookup
// degrades to the raw display value and is returned as a skip.
func ResolveDescriptorRefs(ctx context.Context, r *Resolver, sub Submission, sources map[DescriptorCategory]DescriptorSource) (DescriptorRefs, []error) {
	refs := make(DescriptorRefs, len(sources))
	var skipped []error

	root := Object(sub.Fields)
	for _, cat := range resolvedCategories {
		src, ok := sources[cat]
		if !ok {
			continue
		}
		v, ok := Lookup(root, src.Path)
		if !ok {
			continue
		}
		raw := ""
		for _, s := range NormalizeToStrings(v) {
			if s = strings.TrimSpace(s); s != "" {
				raw = s
				break
			}
		}
		if raw == "" {
			continue
		}
		if src.BoardID == "" || r == nil {
			refs[cat] = RefPart{Name: raw}
			continue
		}
		ref, err := r.Reference(ctx, string(cat), src.BoardID, raw)
		if err != nil {
			skipped = append(skipped, err)
			refs[cat] = RefPart{Name: raw}
			continue
		}
		refs[cat] = RefPart{Code: ref.Code, Name: ref.Name, TeamIDs: ref.TeamIDs}
	}
	return refs, skipped
}
