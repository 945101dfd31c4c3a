package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Role is the closed set of organisational roles a participant can hold.
type Role int

// Supported participant roles.
const (
	RoleOriginator Role = iota + 1
	RoleCustodianA
	RoleCustodianB
	RoleAuditor
)

type roleInfo struct {
	wire     string
	abstract string
	org      string
}

var roleTable = map[Role]roleInfo{
	RoleOriginator: {wire: "Farmer", abstract: "originator", org: "Org1MSP"},
	RoleCustodianA: {wire: "Distributor", abstract: "custodian-a", org: "Org2MSP"},
	RoleCustodianB: {wire: "Retailer", abstract: "custodian-b", org: "Org3MSP"},
	RoleAuditor:    {wire: "Inspector", abstract: "auditor", org: "Org4MSP"},
}

// Roles returns every role in key lookup order.
func Roles() []Role {
	return []Role{RoleOriginator, RoleCustodianA, RoleCustodianB, RoleAuditor}
}

// String returns the wire name stored on participant records.
func (r Role) String() string {
	if info, ok := roleTable[r]; ok {
		return info.wire
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

// KeyPrefix is the upper-cased wire name followed by a dash, e.g. "FARMER-".
func (r Role) KeyPrefix() string {
	return strings.ToUpper(r.String()) + "-"
}

// ParticipantKey builds the ledger key for a participant of role r.
func (r Role) ParticipantKey(id string) string {
	return r.KeyPrefix() + id
}

// ParseRole accepts a wire name or an abstract role name, case-insensitively.
func ParseRole(raw string) (Role, error) {
	needle := strings.TrimSpace(raw)
	for _, role := range Roles() {
		info := roleTable[role]
		if strings.EqualFold(needle, info.wire) || strings.EqualFold(needle, info.abstract) {
			return role, nil
		}
	}
	return 0, InvalidArgument("unknown role %q", raw)
}

// MarshalText encodes the wire name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a wire or abstract role name.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// OrgTable maps each role to the organisation identifier allowed to act for it.
type OrgTable map[Role]string

// DefaultOrgTable returns the four-org deployment mapping.
func DefaultOrgTable() OrgTable {
	table := make(OrgTable, len(roleTable))
	for role, info := range roleTable {
		table[role] = info.org
	}
	return table
}

// NewOrgTable validates that every role has an organisation.
func NewOrgTable(entries map[Role]string) (OrgTable, error) {
	table := make(OrgTable, len(entries))
	for _, role := range Roles() {
		org := strings.TrimSpace(entries[role])
		if org == "" {
			return nil, fmt.Errorf("org table: role %s has no organisation", role)
		}
		table[role] = org
	}
	for role := range entries {
		if !role.Valid() {
			return nil, fmt.Errorf("org table: unknown role %d", int(role))
		}
	}
	return table, nil
}

// Authorize fails with ErrUnauthorized unless callerOrg is the org mapped to role.
func (t OrgTable) Authorize(role Role, callerOrg string) error {
	expected, ok := t[role]
	if !ok || expected == "" || callerOrg != expected {
		return NewError(ErrUnauthorized, "", "", "caller org %q cannot act as %s; expected %q", callerOrg, role, expected)
	}
	return nil
}

// Participant is a directory entry for one role-bound actor. Index fields are
// only meaningful for the roles that carry them.
type Participant struct {
	Role             Role
	ID               string
	Name             string
	Location         string
	WalletID         string
	RegisteredAssets []string
	OwnedAssets      []string
	Certification    []string
	InspectedAssets  []string
}

// Key returns the ledger key for the participant.
func (p Participant) Key() string {
	return p.Role.ParticipantKey(p.ID)
}

// AddOwnedAsset appends id to the owned index once. It reports whether the record changed.
func (p *Participant) AddOwnedAsset(id string) bool {
	return addUnique(&p.OwnedAssets, id)
}

// RemoveOwnedAsset drops id from the owned index. It reports whether the record changed.
func (p *Participant) RemoveOwnedAsset(id string) bool {
	idx := slices.Index(p.OwnedAssets, id)
	if idx < 0 {
		return false
	}
	p.OwnedAssets = slices.Delete(p.OwnedAssets, idx, idx+1)
	return true
}

// AddRegisteredAsset appends id to the originator's registered index once.
func (p *Participant) AddRegisteredAsset(id string) bool {
	return addUnique(&p.RegisteredAssets, id)
}

// AddInspectedAsset appends id to the auditor's inspected index once.
func (p *Participant) AddInspectedAsset(id string) bool {
	return addUnique(&p.InspectedAssets, id)
}

// Clone returns a copy that shares no slices with p.
func (p Participant) Clone() Participant {
	cp := p
	cp.RegisteredAssets = slices.Clone(p.RegisteredAssets)
	cp.OwnedAssets = slices.Clone(p.OwnedAssets)
	cp.Certification = slices.Clone(p.Certification)
	cp.InspectedAssets = slices.Clone(p.InspectedAssets)
	return cp
}

func addUnique(list *[]string, id string) bool {
	if slices.Contains(*list, id) {
		return false
	}
	*list = append(*list, id)
	return true
}

// participantJSON keeps the stored field names of the deployed chaincode and
// emits only the index fields the role carries.
type participantJSON struct {
	Role             Role      `json:"role"`
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	WalletID         string    `json:"walletId"`
	RegisteredAssets *[]string `json:"registeredProduce,omitempty"`
	OwnedAssets      *[]string `json:"ownedProduce,omitempty"`
	Certification    *[]string `json:"certification,omitempty"`
	InspectedAssets  *[]string `json:"inspectedProduce,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Participant) MarshalJSON() ([]byte, error) {
	out := participantJSON{
		Role:     p.Role,
		ID:       p.ID,
		Name:     p.Name,
		Location: p.Location,
		WalletID: p.WalletID,
	}
	switch p.Role {
	case RoleOriginator:
		out.RegisteredAssets = nonNil(p.RegisteredAssets)
		out.OwnedAssets = nonNil(p.OwnedAssets)
		out.Certification = nonNil(p.Certification)
	case RoleCustodianA, RoleCustodianB:
		out.OwnedAssets = nonNil(p.OwnedAssets)
	case RoleAuditor:
		out.InspectedAssets = nonNil(p.InspectedAssets)
	}
	// An index populated on a role that does not usually carry it is kept.
	if out.RegisteredAssets == nil && len(p.RegisteredAssets) > 0 {
		out.RegisteredAssets = &p.RegisteredAssets
	}
	if out.OwnedAssets == nil && len(p.OwnedAssets) > 0 {
		out.OwnedAssets = &p.OwnedAssets
	}
	if out.Certification == nil && len(p.Certification) > 0 {
		out.Certification = &p.Certification
	}
	if out.InspectedAssets == nil && len(p.InspectedAssets) > 0 {
		out.InspectedAssets = &p.InspectedAssets
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var in participantJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Participant{
		Role:             in.Role,
		ID:               in.ID,
		Name:             in.Name,
		Location:         in.Location,
		WalletID:         in.WalletID,
		RegisteredAssets: deref(in.RegisteredAssets),
		OwnedAssets:      deref(in.OwnedAssets),
		Certification:    deref(in.Certification),
		InspectedAssets:  deref(in.InspectedAssets),
	}
	return nil
}

func nonNil(values []string) *[]string {
	if values == nil {
		values = []string{}
	}
	return &values
}

func deref(values *[]string) []string {
	if values == nil {
		return nil
	}
	return *values
}
