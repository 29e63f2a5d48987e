// Package auth 定义角色能力表、访问令牌与自动化接口的静态口令校验。
package auth

import "strings"

// Role 是用户角色。
type Role string

const (
	RoleReader Role = "READER"
	RoleAuthor Role = "AUTHOR"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

// Capability 是一项可被授予的操作权限。
type Capability int

const (
	// CapEngage covers likes and comments.
	CapEngage Capability = iota
	CapWritePosts
	CapManageAllPosts
	CapManageTaxonomy
	CapModerateComments
	CapUploadMedia
	CapViewAnalytics
	CapManageUsers
)

var capabilities = map[Role]map[Capability]bool{
	RoleReader: {
		CapEngage: true,
	},
	RoleAuthor: {
		CapEngage:      true,
		CapWritePosts:  true,
		CapUploadMedia: true,
	},
	RoleEditor: {
		CapEngage:           true,
		CapWritePosts:       true,
		CapUploadMedia:      true,
		CapManageAllPosts:   true,
		CapManageTaxonomy:   true,
		CapModerateComments: true,
		CapViewAnalytics:    true,
	},
	RoleAdmin: {
		CapEngage:           true,
		CapWritePosts:       true,
		CapUploadMedia:      true,
		CapManageAllPosts:   true,
		CapManageTaxonomy:   true,
		CapModerateComments: true,
		CapViewAnalytics:    true,
		CapManageUsers:      true,
	},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role Role, capability Capability) bool {
	return capabilities[role][capability]
}

// ParseRole normalizes a stored role name. ok is false for unknown names.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := capabilities[role]; !ok {
		return "", false
	}
	return role, true
}

// IsStaff reports whether the role is one of AUTHOR, EDITOR or ADMIN.
func IsStaff(role Role) bool {
	return Can(role, CapWritePosts)
}

// Principal 是当前请求的调用者身份。
type Principal struct {
	UserID uint
	Role   Role
}

// Can is shorthand for Can(p.Role, capability).
func (p Principal) Can(capability Capability) bool {
	return Can(p.Role, capability)
}
