package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/database"
	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/models"
)

func main() {
	logger.Init(true, os.Stdout)
	log := logger.Log()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	if err := db.Transaction(seed); err != nil {
		log.WithError(err).Fatal("seed database")
	}
	log.Info("demo data created: admin, reseller1 and client1 (password: changeme123)")
}

func seed(tx *gorm.DB) error {
	admin, err := account(tx, "admin", models.AdminTypeAdmin, 0)
	if err != nil {
		return err
	}
	reseller, err := account(tx, "reseller1", models.AdminTypeReseller, admin.ID)
	if err != nil {
		return err
	}
	props := models.ResellerProps{
		ResellerID:        reseller.ID,
		PHPIni:            true,
		ConfigLevel:       "per_site",
		DisableFunctions:  "yes",
		MailFunction:      true,
		AllowURLFopen:     true,
		DisplayErrors:     true,
		PostMaxSize:       64,
		UploadMaxFilesize: 32,
		MaxExecutionTime:  120,
		MaxInputTime:      120,
		MemoryLimit:       512,
	}
	if err := tx.Where(models.ResellerProps{ResellerID: reseller.ID}).FirstOrCreate(&props).Error; err != nil {
		return fmt.Errorf("reseller props: %w", err)
	}

	client, err := account(tx, "client1", models.AdminTypeClient, reseller.ID)
	if err != nil {
		return err
	}
	dmn := models.Domain{
		DomainName:             "client1.example",
		DomainAdminID:          client.ID,
		DomainStatus:           models.StatusOK,
		PHPIni:                 true,
		PHPIniConfigLevel:      "per_domain",
		PHPIniAllowURLFopen:    true,
		PHPIniDisplayErrors:    true,
		PHPIniDisableFunctions: "exec",
		PHPIniMailFunction:     true,
	}
	if err := tx.Where(models.Domain{DomainAdminID: client.ID}).FirstOrCreate(&dmn).Error; err != nil {
		return fmt.Errorf("domain: %w", err)
	}
	als := models.DomainAlias{DomainID: dmn.ID, AliasName: "client1-alias.example", AliasStatus: models.StatusOK}
	if err := tx.Where(models.DomainAlias{AliasName: als.AliasName}).FirstOrCreate(&als).Error; err != nil {
		return fmt.Errorf("alias: %w", err)
	}
	sub := models.Subdomain{DomainID: dmn.ID, SubdomainName: "blog", SubdomainStatus: models.StatusOK}
	if err := tx.Where(models.Subdomain{DomainID: dmn.ID, SubdomainName: "blog"}).FirstOrCreate(&sub).Error; err != nil {
		return fmt.Errorf("subdomain: %w", err)
	}
	subals := models.SubdomainAlias{AliasID: als.ID, SubdomainAliasName: "shop", SubdomainAliasStatus: models.StatusOK}
	if err := tx.Where(models.SubdomainAlias{AliasID: als.ID, SubdomainAliasName: "shop"}).FirstOrCreate(&subals).Error; err != nil {
		return fmt.Errorf("subdomain alias: %w", err)
	}
	return nil
}

func account(tx *gorm.DB, name, typ string, createdBy uint) (models.Admin, error) {
	a := models.Admin{
		UUID:      uuid.NewString(),
		AdminName: name,
		AdminType: typ,
		CreatedBy: createdBy,
		Email:     name + "@example.com",
	}
	if err := a.SetPassword("changeme123"); err != nil {
		return a, err
	}
	if err := tx.Where(models.Admin{AdminName: name}).FirstOrCreate(&a).Error; err != nil {
		return a, fmt.Errorf("account %s: %w", name, err)
	}
	return a, nil
}
