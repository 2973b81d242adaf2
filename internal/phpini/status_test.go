package phpini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/models"
)

type domainTree struct {
	clientID, domainID                  uint
	subID, disabledSubID                uint
	aliasID, deletedAliasID, subAliasID uint
}

func seedTree(t *testing.T, db *gorm.DB, level ConfigLevel) (uint, domainTree) {
	t.Helper()
	resellerID := seedReseller(t, db, "reseller1", fullReseller())
	dmn := fullClient()
	dmn.PHPIniConfigLevel = string(level)
	var tree domainTree
	tree.clientID, tree.domainID = seedClient(t, db, resellerID, "client1", dmn)

	sub := models.Subdomain{DomainID: tree.domainID, SubdomainName: "www", SubdomainStatus: models.StatusOK}
	disabledSub := models.Subdomain{DomainID: tree.domainID, SubdomainName: "old", SubdomainStatus: models.StatusDisabled}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&disabledSub).Error)
	alias := models.DomainAlias{DomainID: tree.domainID, AliasName: "alias.test", AliasStatus: models.StatusOK}
	deleted := models.DomainAlias{DomainID: tree.domainID, AliasName: "gone.test", AliasStatus: models.StatusToDelete}
	require.NoError(t, db.Create(&alias).Error)
	require.NoError(t, db.Create(&deleted).Error)
	subAlias := models.SubdomainAlias{AliasID: alias.ID, SubdomainAliasName: "shop", SubdomainAliasStatus: models.StatusOK}
	require.NoError(t, db.Create(&subAlias).Error)

	tree.subID, tree.disabledSubID = sub.ID, disabledSub.ID
	tree.aliasID, tree.deletedAliasID, tree.subAliasID = alias.ID, deleted.ID, subAlias.ID
	return resellerID, tree
}

func (tr domainTree) statuses(t *testing.T, db *gorm.DB) map[string]string {
	t.Helper()
	var sub, disabledSub models.Subdomain
	var alias, deleted models.DomainAlias
	var subAlias models.SubdomainAlias
	require.NoError(t, db.First(&sub, tr.subID).Error)
	require.NoError(t, db.First(&disabledSub, tr.disabledSubID).Error)
	require.NoError(t, db.First(&alias, tr.aliasID).Error)
	require.NoError(t, db.First(&deleted, tr.deletedAliasID).Error)
	require.NoError(t, db.First(&subAlias, tr.subAliasID).Error)
	return map[string]string{
		"domain":       domainStatus(t, db, tr.domainID),
		"sub":          sub.SubdomainStatus,
		"disabled_sub": disabledSub.SubdomainStatus,
		"alias":        alias.AliasStatus,
		"gone_alias":   deleted.AliasStatus,
		"sub_alias":    subAlias.SubdomainAliasStatus,
	}
}

func TestUpdateDomainStatuses(t *testing.T) {
	ok, change := models.StatusOK, models.StatusToChange
	tests := []struct {
		title       string
		level       ConfigLevel
		levelBased  bool
		target      func(domainTree) DomainRef
		wantChanged []string
	}{
		{
			title: "per_user marks the whole client", level: ConfigLevelPerUser, levelBased: true,
			target:      func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.subID, models.DomainTypeSubdomain} },
			wantChanged: []string{"domain", "sub", "alias", "sub_alias"},
		},
		{
			title: "per_domain on the primary domain", level: ConfigLevelPerDomain, levelBased: true,
			target:      func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.domainID, models.DomainTypeDomain} },
			wantChanged: []string{"domain", "sub"},
		},
		{
			title: "per_domain on an alias", level: ConfigLevelPerDomain, levelBased: true,
			target:      func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.aliasID, models.DomainTypeAlias} },
			wantChanged: []string{"alias", "sub_alias"},
		},
		{
			title: "per_domain on a subdomain", level: ConfigLevelPerDomain, levelBased: true,
			target: func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.subID, models.DomainTypeSubdomain} },
		},
		{
			title: "per_site marks the target", level: ConfigLevelPerSite, levelBased: true,
			target:      func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.subAliasID, models.DomainTypeSubdomainAlias} },
			wantChanged: []string{"sub_alias"},
		},
		{
			title: "level ignored", level: ConfigLevelPerUser, levelBased: false,
			target:      func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.subID, models.DomainTypeSubdomain} },
			wantChanged: []string{"sub"},
		},
		{
			title: "inactive target untouched", level: ConfigLevelPerSite, levelBased: true,
			target: func(tr domainTree) DomainRef { return DomainRef{tr.clientID, tr.deletedAliasID, models.DomainTypeAlias} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			db := setupDB(t)
			resellerID, tree := seedTree(t, db, tt.level)
			e := New(db)
			require.NoError(t, e.LoadResellerPermissions(&resellerID))
			require.NoError(t, e.LoadClientPermissions(&tree.clientID))
			e.requestNeeded = true

			require.NoError(t, e.UpdateDomainStatuses(tt.target(tree), tt.levelBased))

			want := map[string]string{
				"domain": ok, "sub": ok, "disabled_sub": models.StatusDisabled,
				"alias": ok, "gone_alias": models.StatusToDelete, "sub_alias": ok,
			}
			for _, name := range tt.wantChanged {
				want[name] = change
			}
			assert.Equal(t, want, tree.statuses(t, db))
		})
	}
}

func TestUpdateDomainStatuses_NoopWithoutChange(t *testing.T) {
	db := setupDB(t)
	resellerID, tree := seedTree(t, db, ConfigLevelPerUser)
	e := New(db)
	require.NoError(t, e.LoadResellerPermissions(&resellerID))
	require.NoError(t, e.LoadClientPermissions(&tree.clientID))

	require.NoError(t, e.UpdateDomainStatuses(DomainRef{tree.clientID, tree.domainID, models.DomainTypeDomain}, true))
	assert.Equal(t, models.StatusOK, domainStatus(t, db, tree.domainID))
}

func TestUpdateDomainStatuses_OtherClientsEntity(t *testing.T) {
	db := setupDB(t)
	resellerID, tree := seedTree(t, db, ConfigLevelPerSite)
	otherID, _ := seedClient(t, db, resellerID, "client2", fullClient())

	e := New(db)
	require.NoError(t, e.LoadResellerPermissions(&resellerID))
	require.NoError(t, e.LoadClientPermissions(&otherID))
	e.requestNeeded = true

	require.NoError(t, e.UpdateDomainStatuses(DomainRef{otherID, tree.subID, models.DomainTypeSubdomain}, true))
	assert.Equal(t, models.StatusOK, tree.statuses(t, db)["sub"])
}
