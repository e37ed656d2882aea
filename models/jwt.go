package models

// APIClaims are the claims carried by bearer tokens on the HTTP API
type APIClaims struct {
	Issuer    string `json:"iss"` // optional
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// RunRequest is the body accepted by POST /runs
type RunRequest struct {
	Options ConversionOptions `json:"options"`
	Publish bool              `json:"publish,omitempty"` // upload converted files to the configured target
}
