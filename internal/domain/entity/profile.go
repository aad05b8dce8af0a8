package entity

// ProfileCollection is the document collection holding one profile per uid.
const ProfileCollection = "users"

// UserProfile is the persisted projection of an Identity, keyed by UID.
// Writes are always merges, so fields outside this struct survive.
type UserProfile struct {
	UID           string  `json:"uid" firestore:"uid"`
	Email         *string `json:"email" firestore:"email"`
	EmailVerified bool    `json:"emailVerified" firestore:"emailVerified"`
	DisplayName   *string `json:"displayName" firestore:"displayName"`
}

// ProfileFromIdentity projects exactly the four tracked attributes.
func ProfileFromIdentity(id Identity) UserProfile {
	return UserProfile{
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		DisplayName:   id.DisplayName,
	}
}

// Fields returns the profile as a field map, the unit of a merge write.
func (p UserProfile) Fields() map[string]any {
	return map[string]any{
		"uid":           p.UID,
		"email":         p.Email,
		"emailVerified": p.EmailVerified,
		"displayName":   p.DisplayName,
	}
}

// ProfileFromFields is the inverse of Fields. Unknown keys are ignored.
func ProfileFromFields(m map[string]any) UserProfile {
	var p UserProfile
	if v, ok := m["uid"].(string); ok {
		p.UID = v
	}
	p.Email = stringField(m["email"])
	if v, ok := m["emailVerified"].(bool); ok {
		p.EmailVerified = v
	}
	p.DisplayName = stringField(m["displayName"])
	return p
}

func stringField(v any) *string {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		s := *x
		return &s
	case string:
		return &x
	default:
		return nil
	}
}

// ProfileDocPath returns the document path of a uid's profile.
func ProfileDocPath(uid string) string {
	return ProfileCollection + "/" + uid
}
