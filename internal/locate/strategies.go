package locate

import "reelbot/generic"

// A Strategy inspects a rendered page for a direct media URL. Strategies are
// pure: absence is a None, never an error.
type Strategy struct {
	Name    string
	Extract func(*Page) generic.Option[string]
}

// DefaultStrategies in priority order. The first hit wins.
var DefaultStrategies = []Strategy{
	{
		Name: "twitter-player-stream",
		Extract: func(p *Page) generic.Option[string] {
			return p.Attr(`meta[name="twitter:player:stream"]`, "content")
		},
	},
	{
		Name: "og-video",
		Extract: func(p *Page) generic.Option[string] {
			return p.Attr(`meta[property="og:video"]`, "content")
		},
	},
	{
		Name: "video-src",
		Extract: func(p *Page) generic.Option[string] {
			return p.Attr("video[src]", "src")
		},
	},
	{
		Name: "video-source-src",
		Extract: func(p *Page) generic.Option[string] {
			return p.Attr("video source[src]", "src")
		},
	},
}
