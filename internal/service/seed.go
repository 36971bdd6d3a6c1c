package service

import (
	"fmt"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/sirupsen/logrus"
)

// SeedAccessControl creates the default privileges and roles, grants them,
// and creates the admin user when it does not exist yet. It is idempotent.
func SeedAccessControl(privRepo repository.PrivilegeRepository, roleRepo repository.RoleRepository, userRepo repository.UserRepository, adminEmail, adminPassword string, log logrus.FieldLogger) error {
	if err := privRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := roleRepo.SeedDefaults(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	allPrivileges, err := privRepo.FindAll()
	if err != nil {
		return fmt.Errorf("load privileges: %w", err)
	}

	// MASTER_ADMIN gets ALL privileges
	masterRole, err := roleRepo.FindByCode(model.RoleMasterAdmin)
	if err != nil {
		return fmt.Errorf("load role %s: %w", model.RoleMasterAdmin, err)
	}
	if len(masterRole.Privileges) == 0 {
		if err := roleRepo.AssignPrivileges(masterRole, allPrivileges); err != nil {
			return fmt.Errorf("grant %s: %w", model.RoleMasterAdmin, err)
		}
		log.WithField("role", model.RoleMasterAdmin).Info("role assigned all privileges")
	}

	clerkRole, err := roleRepo.FindByCode(model.RoleClerk)
	if err != nil {
		return fmt.Errorf("load role %s: %w", model.RoleClerk, err)
	}
	if len(clerkRole.Privileges) == 0 {
		clerkPrivileges, err := privRepo.FindByCodes(model.ClerkPrivileges)
		if err != nil {
			return fmt.Errorf("load clerk privileges: %w", err)
		}
		if err := roleRepo.AssignPrivileges(clerkRole, clerkPrivileges); err != nil {
			return fmt.Errorf("grant %s: %w", model.RoleClerk, err)
		}
		log.WithField("role", model.RoleClerk).Info("role assigned limited privileges")
	}

	if _, err := userRepo.FindByEmail(adminEmail); err == nil {
		return nil
	}

	admin := &model.User{
		Email:    adminEmail,
		FullName: "Master Administrator",
		RoleID:   &masterRole.ID,
		IsActive: true,
	}
	admin.CreatedBy = SystemActor.ID
	admin.UpdatedBy = SystemActor.ID
	if err := admin.SetPassword(adminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := userRepo.Create(admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.WithField("email", adminEmail).Info("admin user created")
	return nil
}
