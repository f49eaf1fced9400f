package tmdb

import (
	"fmt"
	"strings"
)

const placeholderImage = "https://picsum.photos/500/750?grayscale"

func (c *TMDBClient) ImageURL(path, size string) string {
	if path == "" {
		return placeholderImage
	}
	if size == "" {
		size = "w500"
	}
	return c.imageBase + "/" + size + path
}

func (c *TMDBClient) PosterURL(path string) string {
	return c.ImageURL(path, "w500")
}

func (c *TMDBClient) BackdropURL(path string) string {
	return c.ImageURL(path, "original")
}

// Player builds embed URLs for the external streaming player.
type Player struct {
	baseURL string
}

func NewPlayer(baseURL string) Player {
	return Player{baseURL: strings.TrimRight(baseURL, "/")}
}

func (p Player) MovieEmbedURL(id int) string {
	return fmt.Sprintf("%s/movie/%d/english", p.baseURL, id)
}

func (p Player) TVEmbedURL(id, season, episode int) string {
	if season < 1 {
		season = 1
	}
	if episode < 1 {
		episode = 1
	}
	return fmt.Sprintf("%s/tv/%d/%d/%d/english", p.baseURL, id, season, episode)
}
