// msgboard/config/config.go
package config

const (
	AppVersion = "0.9.0"
	SiteName   = "Message Board"

	// URL layout
	RootSlug    = "board"
	UseRootSlug = true

	// Form & Post Limits
	MaxTitleLen    = 120
	MaxContentLen  = 20000
	MaxLoginLen    = 40
	MinPasswordLen = 8

	// Listing
	TopicsPerPage  = 15
	RepliesPerPage = 15
	UsersPerPage   = 30
	SearchLimit    = 50
	FeedItemLimit  = 25

	// Avatar Upload Limits
	MaxAvatarSize = 2 * 1024 * 1024 // 2MB
	MaxAvatarDim  = 4000
	AvatarSize    = 96

	// Posting throttle defaults (users without bypass_throttle)
	DefaultRateLimitEvery  = "15s"
	DefaultRateLimitBurst  = 2
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"

	// Sessions
	DefaultSessionLifetime = "336h"

	DefaultRole = "participant"
)
