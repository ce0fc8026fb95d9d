package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/safetyops/permit-management/internal/permit"
	"github.com/safetyops/permit-management/internal/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := gormDB.Exec("DELETE FROM permits").Error; err != nil {
				log.Fatalf("failed to clear permits: %v", err)
			}
			if err := gormDB.Exec("DELETE FROM users").Error; err != nil {
				log.Fatalf("failed to clear users: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		seedUsers := []user.User{
			{Name: "Safety Admin", Email: "admin@plant.local", PasswordHash: string(hash), Role: user.RoleAdmin},
			{Name: "Ravi Contractor", Email: "ravi@contractor.local", PasswordHash: string(hash), Role: user.RoleClient},
		}

		userIDs := map[string]int64{}
		for i := range seedUsers {
			u := &seedUsers[i]
			var existing user.User
			if err := gormDB.Where("email = ?", u.Email).First(&existing).Error; err == nil {
				fmt.Printf("user %s already exists\n", u.Email)
				userIDs[u.Email] = existing.ID
				continue
			}
			if err := gormDB.Create(u).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			fmt.Printf("seeded user %s (%s)\n", u.Email, u.Role)
			userIDs[u.Email] = u.ID
		}

		clientID := userIDs["ravi@contractor.local"]
		now := time.Now()
		seedPermits := []permit.Permit{
			{
				PermitNumber: "WP-1001",
				PONumber:     "PO-558",
				EmployeeName: "S. Kumar",
				PermitType:   "HOT WORK",
				PermitStatus: permit.StatusApproved,
				Location:     "Furnace Bay 3",
				IssueDate:    now.AddDate(0, 0, -10),
				ExpiryDate:   now.AddDate(0, 0, -3),
				CreatedBy:    clientID,
			},
			{
				PermitNumber: "WP-1002",
				PONumber:     "PO-612",
				EmployeeName: "A. Verma",
				PermitType:   "CONFINED SPACE",
				PermitStatus: permit.StatusPending,
				Location:     "Tank Farm",
				IssueDate:    now.AddDate(0, 0, -1),
				ExpiryDate:   now.AddDate(0, 0, 6),
				CreatedBy:    clientID,
			},
		}

		for i := range seedPermits {
			p := &seedPermits[i]
			var count int64
			gormDB.Model(&permit.Permit{}).Where("permit_number = ?", p.PermitNumber).Count(&count)
			if count > 0 {
				fmt.Printf("permit %s already exists\n", p.PermitNumber)
				continue
			}
			if err := gormDB.Create(p).Error; err != nil {
				log.Fatalf("failed to seed permit %s: %v", p.PermitNumber, err)
			}
			fmt.Printf("seeded permit %s\n", p.PermitNumber)
		}
	},
}
