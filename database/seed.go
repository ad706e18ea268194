package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/auth"
	"github.com/CANDRY15/flashprint/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleGranter grants a role and drops any cached has_role answer
type RoleGranter interface {
	Grant(ctx context.Context, userID uint, role string) error
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	roles RoleGranter
	log   *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, roles RoleGranter, log *logger.Logger) *Seeder {
	return &Seeder{db: db, roles: roles, log: log}
}

// SeedAll runs every seed. Each step is idempotent.
func (s *Seeder) SeedAll(adminEmail, adminPassword string) error {
	if err := s.SeedSiteContent(); err != nil {
		return fmt.Errorf("failed to seed site content: %w", err)
	}

	if err := s.SeedAdminUser(adminEmail, adminPassword); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	return nil
}

// DefaultSiteContent is the copy inserted on first run
func DefaultSiteContent() []model.SiteContent {
	return []model.SiteContent{
		{Section: "hero", Key: "title", Value: "Imprimez malin, accédez partout"},
		{Section: "hero", Key: "subtitle", Value: "La solution d'impression moderne pour les étudiants de Lubumbashi. Impression rapide, reliure professionnelle et accès numérique à vos syllabus via QR Code."},
		{Section: "about", Key: "title", Value: "L'histoire de FlashPrint"},
		{Section: "about", Key: "description", Value: "Né de la passion d'un étudiant pour l'innovation, FlashPrint transforme l'expérience éducative en rendant l'information accessible partout et à tout moment."},
		{Section: "services", Key: "title", Value: "Solutions d'impression modernes"},
		{Section: "services", Key: "subtitle", Value: "Des services complets adaptés aux besoins des étudiants, avec la technologie au service de votre réussite."},
		{Section: "contact", Key: "title", Value: "Parlons de votre projet"},
		{Section: "contact", Key: "subtitle", Value: "Une question ? Besoin d'un devis ? Notre équipe est là pour vous accompagner dans tous vos projets d'impression."},
		{Section: "contact", Key: "phone", Value: "+243 815 050 397"},
		{Section: "contact", Key: "email", Value: "contact@flashprint.cd"},
		{Section: "contact", Key: "address", Value: "Lubumbashi, Kasapa"},
	}
}

// SeedSiteContent inserts missing default rows and never overwrites edits
func (s *Seeder) SeedSiteContent() error {
	rows := DefaultSiteContent()
	for i := range rows {
		rows[i].ContentType = "text"
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		s.log.Info("seeded site content", "rows", result.RowsAffected)
	}
	return nil
}

// SeedAdminUser creates the first admin account and grants it the admin role
func (s *Seeder) SeedAdminUser(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	var user model.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := s.db.NowFunc()
		user = model.User{
			Email:            email,
			PasswordHash:     hash,
			EmailConfirmedAt: &now,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return err
		}
		s.log.Info("created admin user", "user_id", user.ID)
	}

	return s.roles.Grant(context.Background(), user.ID, model.RoleAdmin)
}
