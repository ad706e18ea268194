package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/CANDRY15/flashprint/model"
	"gorm.io/gorm"
)

// PromotionTab is one promotion of the library browser
type PromotionTab struct {
	Promotion model.Promotion  `json:"promotion"`
	Count     int              `json:"count"`
	Documents []model.Syllabus `json:"documents"`
}

// LibraryView is the library browser state of one faculty
type LibraryView struct {
	Faculty *model.Faculty `json:"faculty"`
	// Empty is true when the faculty has no document at all, as opposed to
	// a tab with no match
	Empty bool           `json:"empty"`
	Year  string         `json:"year,omitempty"`
	Query string         `json:"query,omitempty"`
	Tabs  []PromotionTab `json:"tabs"`
}

type LibraryService struct {
	db        *gorm.DB
	faculties *FacultyService
}

func NewLibraryService(db *gorm.DB, faculties *FacultyService) *LibraryService {
	return &LibraryService{db: db, faculties: faculties}
}

// Browse loads every document of a faculty in one query and groups them by
// promotion. The text filter runs in memory on the selected tab, or on every
// tab when year is empty.
func (s *LibraryService) Browse(ctx context.Context, facultySlugOrID, year, query string) (*LibraryView, error) {
	faculty, err := s.faculties.Get(ctx, facultySlugOrID)
	if err != nil {
		return nil, err
	}

	var docs []model.Syllabus
	err = s.db.WithContext(ctx).
		Where("faculty_id = ?", faculty.ID).
		Order("year ASC").
		Order("title ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	view := &LibraryView{
		Faculty: faculty,
		Empty:   len(docs) == 0,
		Year:    year,
		Query:   query,
		Tabs:    GroupByPromotion(docs),
	}

	for i := range view.Tabs {
		tab := &view.Tabs[i]
		if year == "" || string(tab.Promotion) == year {
			tab.Documents = FilterSyllabus(tab.Documents, SyllabusFilter{Query: query})
		}
		tab.Count = len(tab.Documents)
	}
	return view, nil
}

// GroupByPromotion returns one tab per canonical promotion, in order.
// Legacy labels land in their canonical tab; unknown labels are dropped.
func GroupByPromotion(docs []model.Syllabus) []PromotionTab {
	tabs := make([]PromotionTab, len(model.Promotions))
	index := make(map[model.Promotion]int, len(model.Promotions))
	for i, p := range model.Promotions {
		tabs[i] = PromotionTab{Promotion: p, Documents: []model.Syllabus{}}
		index[p] = i
	}

	for _, d := range docs {
		p, ok := model.NormalizePromotion(string(d.Year))
		if !ok {
			continue
		}
		i := index[p]
		tabs[i].Documents = append(tabs[i].Documents, d)
	}

	for i := range tabs {
		tabs[i].Count = len(tabs[i].Documents)
	}
	return tabs
}

// ShowcaseDocument is an entry of the static showcase catalogue
type ShowcaseDocument struct {
	Title     string          `json:"title"`
	Professor string          `json:"professor"`
	Year      model.Promotion `json:"year"`
	Size      string          `json:"size"`
	Code      string          `json:"code"`
}

// ShowcaseFaculty groups showcase entries
type ShowcaseFaculty struct {
	Slug      string             `json:"slug"`
	Name      string             `json:"name"`
	Documents []ShowcaseDocument `json:"documents"`
}

var showcase = []ShowcaseFaculty{
	{Slug: "ingenieurs", Name: "Ingénieurs", Documents: []ShowcaseDocument{
		{"Mathématiques Appliquées I", "Prof. Mukendi", model.PromotionBac1, "2.4 MB", "FP-ING-MA1-2024"},
		{"Programmation C++", "Prof. Kabongo", model.PromotionBac2, "3.1 MB", "FP-ING-CPP-2024"},
		{"Résistance des Matériaux", "Prof. Mwamba", model.PromotionBac3, "4.2 MB", "FP-ING-RDM-2024"},
	}},
	{Slug: "medecine", Name: "Médecine", Documents: []ShowcaseDocument{
		{"Anatomie Générale", "Dr. Kasongo", model.PromotionBac1, "5.8 MB", "FP-MED-ANAT-2024"},
		{"Physiologie Humaine", "Dr. Mulamba", model.PromotionBac2, "4.1 MB", "FP-MED-PHYS-2024"},
	}},
	{Slug: "droit", Name: "Droit", Documents: []ShowcaseDocument{
		{"Droit Civil I", "Me. Tshiswaka", model.PromotionBac1, "2.9 MB", "FP-DRT-CIV1-2024"},
		{"Droit Constitutionnel", "Me. Kazadi", model.PromotionBac2, "3.5 MB", "FP-DRT-CONST-2024"},
	}},
	{Slug: "sciences", Name: "Sciences", Documents: []ShowcaseDocument{
		{"Chimie Organique", "Prof. Mputu", model.PromotionBac2, "3.7 MB", "FP-SCI-CHIM-2024"},
		{"Physique Quantique", "Prof. Nkulu", model.PromotionBac3, "4.8 MB", "FP-SCI-PHYS-2024"},
	}},
}

// Showcase returns the static catalogue filtered on title and professor.
// Faculties are kept even when none of their entries match.
func Showcase(query string) []ShowcaseFaculty {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]ShowcaseFaculty, 0, len(showcase))
	for _, f := range showcase {
		docs := make([]ShowcaseDocument, 0, len(f.Documents))
		for _, d := range f.Documents {
			if q == "" ||
				strings.Contains(strings.ToLower(d.Title), q) ||
				strings.Contains(strings.ToLower(d.Professor), q) {
				docs = append(docs, d)
			}
		}
		out = append(out, ShowcaseFaculty{Slug: f.Slug, Name: f.Name, Documents: docs})
	}
	return out
}
