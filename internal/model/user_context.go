package model

// UserContext is an audit principal; Author renders the author string
// that mutating operations take (they take that plain string, not a
// UserContext). It is the library-level generalization of the X-User-Id /
// X-User-Email / X-User-Name headers spec.md section 6 describes at the
// (out-of-scope) REST layer: the core only needs the resolved values, not
// how they were extracted from a request.
type UserContext struct {
	UserId string
	Email  string
	Name   string
}

// DevUser is the principal used when no caller-supplied context is given,
// matching the "absent headers default to a development user in
// non-production builds" behavior from spec.md section 6.
var DevUser = UserContext{UserId: "dev", Name: "Development User"}

// Author renders a short author string suitable for Commit.Author /
// Branch.Author, preferring a real name over a bare id.
func (u UserContext) Author() string {
	if u.Name != "" {
		return u.Name
	}
	if u.UserId != "" {
		return u.UserId
	}
	return DevUser.UserId
}
