// Package inviterole manages the invite-role rules of a guild: rules that
// grant and revoke roles when a member joins through one of their invites.
package inviterole

import (
	"fmt"
	"strconv"

	"guildkeeper/internal/apperrors"
	"guildkeeper/internal/guild"

	"github.com/samber/lo"
)

const maxColor = 0xFFFFFF

// Input carries the fields of an add or update request. A nil field was
// not supplied.
type Input struct {
	Name          string
	RenameTo      *string
	Description   *string
	Color         *int
	Invites       []string
	RolesToAdd    []string
	RolesToRemove []string
	Enabled       *bool
}

// Refs is what the guild currently has, used to resolve raw references.
// A nil Invites list disables invite existence checks.
type Refs struct {
	Roles   []RoleRef
	Invites []string
}

type Result struct {
	Rule     guild.InviteRoleRule
	Warnings []string
}

// Upsert creates or updates a rule in cfg. The caller persists cfg.
func Upsert(cfg *guild.Config, in Input, isUpdate bool, refs Refs, now int64) (Result, error) {
	if err := ValidateName(in.Name); err != nil {
		return Result{}, err
	}
	if in.RenameTo != nil {
		if err := ValidateName(*in.RenameTo); err != nil {
			return Result{}, err
		}
	}

	var warnings []string
	resolveRoles := func(raw []string) ([]string, error) {
		if raw == nil {
			return nil, nil
		}
		matched, roleWarnings := ResolveRoleReferences(raw, refs.Roles)
		warnings = append(warnings, roleWarnings...)
		if bad, found := lo.Find(matched, RoleRef.Disallowed); found {
			return nil, apperrors.WithKind(apperrors.CodeRoleResolution, apperrors.KindDisallowed,
				fmt.Sprintf("role %s cannot be managed by a rule", bad.ID),
				map[string]string{"RoleID": bad.ID, "RoleName": bad.Name})
		}
		return lo.Map(matched, func(role RoleRef, _ int) string { return role.ID }), nil
	}

	rolesToAdd, err := resolveRoles(in.RolesToAdd)
	if err != nil {
		return Result{}, err
	}
	rolesToRemove, err := resolveRoles(in.RolesToRemove)
	if err != nil {
		return Result{}, err
	}

	var invites []string
	if in.Invites != nil {
		var inviteWarnings []string
		invites, inviteWarnings = ResolveInviteReferences(in.Invites, refs.Invites)
		warnings = append(warnings, inviteWarnings...)
	}

	if in.Color != nil && (*in.Color < 0 || *in.Color > maxColor) {
		return Result{}, apperrors.WithMetadata(apperrors.CodeValidation,
			fmt.Sprintf("color %d out of range", *in.Color),
			map[string]string{"Color": strconv.Itoa(*in.Color)})
	}

	index := cfg.RuleIndex(in.Name)
	if !isUpdate {
		if index >= 0 {
			return Result{}, ruleExists(in.Name)
		}
		rule := guild.InviteRoleRule{
			Name:          in.Name,
			Description:   lo.FromPtr(in.Description),
			Color:         in.Color,
			Invites:       nonNil(invites),
			RolesToAdd:    nonNil(rolesToAdd),
			RolesToRemove: nonNil(rolesToRemove),
			Enabled:       lo.FromPtrOr(in.Enabled, true),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		cfg.InviteRoles = append(cfg.InviteRoles, rule)
		return Result{Rule: rule, Warnings: warnings}, nil
	}

	if index < 0 {
		return Result{}, ruleNotFound(in.Name)
	}
	if in.RenameTo != nil && *in.RenameTo != in.Name && cfg.RuleIndex(*in.RenameTo) >= 0 {
		return Result{}, ruleExists(*in.RenameTo)
	}

	rule := cfg.InviteRoles[index]
	if in.RenameTo != nil {
		rule.Name = *in.RenameTo
	}
	if in.Description != nil {
		rule.Description = *in.Description
	}
	if in.Color != nil {
		rule.Color = in.Color
	}
	if in.Invites != nil {
		rule.Invites = nonNil(invites)
	}
	if in.RolesToAdd != nil {
		rule.RolesToAdd = nonNil(rolesToAdd)
	}
	if in.RolesToRemove != nil {
		rule.RolesToRemove = nonNil(rolesToRemove)
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	rule.UpdatedAt = now
	cfg.InviteRoles[index] = rule
	return Result{Rule: rule, Warnings: warnings}, nil
}

// Remove deletes the named rule and returns it as it was. cfg is left
// untouched when the rule does not exist.
func Remove(cfg *guild.Config, name string) (guild.InviteRoleRule, error) {
	index := cfg.RuleIndex(name)
	if index < 0 {
		return guild.InviteRoleRule{}, ruleNotFound(name)
	}
	removed := cfg.InviteRoles[index]
	cfg.InviteRoles = append(cfg.InviteRoles[:index:index], cfg.InviteRoles[index+1:]...)
	return removed, nil
}

// List returns every rule, or only the rule called name when name is set.
func List(cfg *guild.Config, name string) []guild.InviteRoleRule {
	if name == "" {
		return append([]guild.InviteRoleRule{}, cfg.InviteRoles...)
	}
	return lo.Filter(cfg.InviteRoles, func(rule guild.InviteRoleRule, _ int) bool {
		return rule.Name == name
	})
}

// Matching returns the enabled rules listing code, in configuration order.
func Matching(cfg *guild.Config, code string) []int {
	var indexes []int
	for i, rule := range cfg.InviteRoles {
		if rule.Enabled && rule.HasInvite(code) {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

func ruleExists(name string) error {
	return apperrors.WithMetadata(apperrors.CodeRuleExists,
		fmt.Sprintf("rule %q already exists", name),
		map[string]string{"Name": name})
}

func ruleNotFound(name string) error {
	return apperrors.WithMetadata(apperrors.CodeRuleNotFound,
		fmt.Sprintf("rule %q not found", name),
		map[string]string{"Name": name})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
