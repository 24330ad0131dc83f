package session

// Record is the persisted state of one issued refresh token. The raw token
// never appears here; only the SHA-256 hash of its secret half is stored.
type Record struct {
	SessionID  string
	SubjectID  string
	Identifier string
	Kind       string
	SecretHash [32]byte
	IssuedAt   int64
	ExpiresAt  int64
	Revoked    bool
}
