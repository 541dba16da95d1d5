package main

import (
	"log"

	"carbooking/internal/config"
	"carbooking/internal/database"
	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
	"carbooking/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	// Dependents first.
	log.Println("Cleaning old data...")
	for _, table := range []string{"staging_entries", "reservations", "extras", "vehicles", "clients"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("cleanup %s failed: %v", table, err)
		}
	}

	// ================== VEHICLES ==================
	log.Println("Creating vehicles...")
	vehicles := []domain.Vehicle{
		{Brand: "Dacia", Model: "Logan", Category: "Économique", PricePerDay: 300, ImageURL: "/images/dacia-logan.png", Available: true},
		{Brand: "Renault", Model: "Clio 5", Category: "Citadine", PricePerDay: 400, ImageURL: "/images/renault-clio.png", Available: true},
		{Brand: "Peugeot", Model: "308", Category: "Compacte", PricePerDay: 550, ImageURL: "/images/peugeot-308.png", Available: true},
		{Brand: "Hyundai", Model: "Tucson", Category: "SUV", PricePerDay: 800, ImageURL: "/images/hyundai-tucson.png", Available: true},
		{Brand: "Mercedes", Model: "Classe C", Category: "Premium", PricePerDay: 1200, ImageURL: "/images/mercedes-c.png", Available: true},
	}
	for i := range vehicles {
		if err := db.Create(&vehicles[i]).Error; err != nil {
			log.Fatalf("create vehicle %s %s: %v", vehicles[i].Brand, vehicles[i].Model, err)
		}
	}

	// ================== EXTRAS ==================
	log.Println("Creating extras...")
	extras := []domain.Extra{
		{Name: "GPS", Category: "Navigation", PricePerDay: 70},
		{Name: "Siège bébé", Category: "Famille", PricePerDay: 20},
		{Name: "Conducteur additionnel", Category: "Assurance", PricePerDay: 80},
		{Name: "Assurance tous risques", Category: "Assurance", PricePerDay: 150},
	}
	for i := range extras {
		if err := db.Create(&extras[i]).Error; err != nil {
			log.Fatalf("create extra %s: %v", extras[i].Name, err)
		}
	}

	// ================== CLIENTS ==================
	log.Println("Creating clients...")
	hash, err := auth.HashPassword("client123")
	if err != nil {
		log.Fatal(err)
	}
	clients := []domain.Client{
		{
			Email:            "complet@example.com",
			PasswordHash:     hash,
			Civility:         "Mme",
			FirstName:        "Salma",
			LastName:         "Bennani",
			Phone:            "+212 600 000 001",
			IdentityDocument: "BK123456",
			BirthDate:        "1990-04-12",
			LicenseNumber:    "12/345678",
			LicenseIssuedAt:  "2010-06-01",
			Address:          "12 rue des Orangers, Casablanca",
			PreferredAgency:  "Casablanca Aéroport",
		},
		{
			Email:        "incomplet@example.com",
			PasswordHash: hash,
			FirstName:    "Youssef",
			LastName:     "Alaoui",
			Phone:        "+212 600 000 002",
		},
	}
	for i := range clients {
		if err := db.Create(&clients[i]).Error; err != nil {
			log.Fatalf("create client %s: %v", clients[i].Email, err)
		}
	}

	log.Printf("Seed done: %d vehicles, %d extras, %d clients", len(vehicles), len(extras), len(clients))
	log.Println("Clients: complet@example.com / client123 (complete profile), incomplet@example.com / client123 (missing fields)")
}
