package client

import "trendzn-restful/models"

// Result is the outcome of a list call. Placeholder is set when Data holds
// bundled sample content instead of a server response.
type Result[T any] struct {
	Data        T
	Err         error
	Placeholder bool
}

// WithPlaceholder substitutes sample data for a failed result. Err is kept
// so callers can still report the failure.
func WithPlaceholder[T any](r Result[T], sample func() T) Result[T] {
	if r.Err == nil {
		return r
	}
	return Result[T]{Data: sample(), Err: r.Err, Placeholder: true}
}

func SampleTrends() []models.Trend {
	return []models.Trend{
		{
			ID:          1,
			Title:       "🤖 AI Bot Becomes TikTok Star",
			Description: "ChatGPT clone gains TikTok access, roasts influencers, gets 15M followers and brand deals.",
			Category:    "tech",
			Views:       45000000,
			MemeScore:   10,
			Status:      models.StatusViral,
		},
		{
			ID:          2,
			Title:       "💎 Gen-Z Crypto Legend",
			Description: "Student turns $50 into $2B trading meme coins from McDonald's WiFi. Peak Gen-Z energy.",
			Category:    "crypto",
			Views:       892000,
			MemeScore:   8,
			Status:      models.StatusHot,
		},
		{
			ID:          3,
			Title:       "🎭 Netflix Destroys Dating",
			Description: "Reality show causes mass dating app deletion. Everyone expects AI matchmaking now.",
			Category:    "entertainment",
			Views:       1200000,
			MemeScore:   7,
			Status:      models.StatusRising,
		},
	}
}

func SampleTemplates() []models.Template {
	return []models.Template{
		{ID: 1, Name: "Drake Pointing", Category: "popular", Icon: "👨‍🎤", Uses: 15400, Rating: 9.8, IsPopular: true},
		{ID: 2, Name: "Distracted Boyfriend", Category: "popular", Icon: "👨‍💼", Uses: 12300, Rating: 9.5, IsPopular: true},
		{ID: 3, Name: "Surprised Pikachu", Category: "reactions", Icon: "⚡", Uses: 18200, Rating: 9.9},
	}
}
