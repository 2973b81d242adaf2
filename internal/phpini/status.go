package phpini

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/models"
)

// inactiveStatuses are never moved to tochange.
var inactiveStatuses = []string{models.StatusDisabled, models.StatusToDisable, models.StatusToDelete}

// UpdateDomainStatuses schedules the entities affected by a change to ref for
// reprovisioning. It does nothing unless a previous save changed data. With
// configLevelBased the client's config level decides the scope: per_user
// marks the whole client, per_domain marks the tree under a domain or alias,
// per_site marks ref alone.
func (e *Engine) UpdateDomainStatuses(ref DomainRef, configLevelBased bool) error {
	if !e.requestNeeded {
		return nil
	}
	if err := e.require(StateClientLoaded); err != nil {
		return err
	}
	if err := ref.validate(); err != nil {
		return err
	}
	return e.db.Transaction(func(tx *gorm.DB) error {
		mainID, err := mainDomainID(tx, ref.ClientID)
		if err != nil {
			return err
		}
		if configLevelBased {
			switch e.client.ConfigLevel {
			case ConfigLevelPerUser:
				return markClient(tx, mainID)
			case ConfigLevelPerDomain:
				switch ref.DomainType {
				case models.DomainTypeDomain:
					return markDomainTree(tx, mainID, ref.DomainID)
				case models.DomainTypeAlias:
					return markAliasTree(tx, mainID, ref.DomainID)
				}
				// Subdomains follow their parent and are marked with it.
				return nil
			}
		}
		return markEntity(tx, mainID, ref)
	})
}

func mainDomainID(db *gorm.DB, clientID uint) (uint, error) {
	var dmn models.Domain
	res := db.Select("domain_id").Where("domain_admin_id = ?", clientID).Limit(1).Find(&dmn)
	if res.Error != nil {
		return 0, fmt.Errorf("load primary domain of client %d: %w", clientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: client %d", ErrClientNotFound, clientID)
	}
	return dmn.ID, nil
}

func aliasIDs(db *gorm.DB, mainID uint) *gorm.DB {
	return db.Model(&models.DomainAlias{}).Select("alias_id").Where("domain_id = ?", mainID)
}

func markClient(db *gorm.DB, mainID uint) error {
	ok, err := markDomain(db, mainID)
	if err != nil || !ok {
		return err
	}
	if err := markSubdomains(db, "domain_id = ?", mainID); err != nil {
		return err
	}
	if err := markAliases(db, "domain_id = ?", mainID); err != nil {
		return err
	}
	return markSubdomainAliases(db, "alias_id IN (?)", aliasIDs(db, mainID))
}

func markDomainTree(db *gorm.DB, mainID, domainID uint) error {
	if domainID != mainID {
		return nil
	}
	ok, err := markDomain(db, mainID)
	if err != nil || !ok {
		return err
	}
	return markSubdomains(db, "domain_id = ?", mainID)
}

func markAliasTree(db *gorm.DB, mainID, aliasID uint) error {
	res := db.Model(&models.DomainAlias{}).
		Where("alias_id = ? AND domain_id = ? AND alias_status NOT IN ?", aliasID, mainID, inactiveStatuses).
		Update("alias_status", models.StatusToChange)
	if res.Error != nil {
		return fmt.Errorf("mark alias %d: %w", aliasID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	return markSubdomainAliases(db, "alias_id = ?", aliasID)
}

func markEntity(db *gorm.DB, mainID uint, ref DomainRef) error {
	switch ref.DomainType {
	case models.DomainTypeDomain:
		if ref.DomainID != mainID {
			return nil
		}
		_, err := markDomain(db, mainID)
		return err
	case models.DomainTypeSubdomain:
		return markSubdomains(db, "subdomain_id = ? AND domain_id = ?", ref.DomainID, mainID)
	case models.DomainTypeAlias:
		return markAliases(db, "alias_id = ? AND domain_id = ?", ref.DomainID, mainID)
	case models.DomainTypeSubdomainAlias:
		return markSubdomainAliases(db, "subdomain_alias_id = ? AND alias_id IN (?)", ref.DomainID, aliasIDs(db, mainID))
	}
	return fmt.Errorf("%w: type %q", ErrInvalidDomainRef, ref.DomainType)
}

func markDomain(db *gorm.DB, domainID uint) (bool, error) {
	res := db.Model(&models.Domain{}).
		Where("domain_id = ? AND domain_status NOT IN ?", domainID, inactiveStatuses).
		Update("domain_status", models.StatusToChange)
	if res.Error != nil {
		return false, fmt.Errorf("mark domain %d: %w", domainID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func markSubdomains(db *gorm.DB, query string, args ...interface{}) error {
	err := db.Model(&models.Subdomain{}).Where(query, args...).
		Where("subdomain_status NOT IN ?", inactiveStatuses).
		Update("subdomain_status", models.StatusToChange).Error
	if err != nil {
		return fmt.Errorf("mark subdomains: %w", err)
	}
	return nil
}

func markAliases(db *gorm.DB, query string, args ...interface{}) error {
	err := db.Model(&models.DomainAlias{}).Where(query, args...).
		Where("alias_status NOT IN ?", inactiveStatuses).
		Update("alias_status", models.StatusToChange).Error
	if err != nil {
		return fmt.Errorf("mark domain aliases: %w", err)
	}
	return nil
}

func markSubdomainAliases(db *gorm.DB, query string, args ...interface{}) error {
	err := db.Model(&models.SubdomainAlias{}).Where(query, args...).
		Where("subdomain_alias_status NOT IN ?", inactiveStatuses).
		Update("subdomain_alias_status", models.StatusToChange).Error
	if err != nil {
		return fmt.Errorf("mark subdomain aliases: %w", err)
	}
	return nil
}
