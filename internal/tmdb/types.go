package tmdb

// Movie is one entry of the trending list.
type Movie struct {
	ID          int64
	Title       string
	ReleaseDate string
	PosterPath  string
}

// trendingResponse is the JSON response for /trending/movie/{window}.
// Pointer fields distinguish missing keys from zero values.
type trendingResponse struct {
	Page    int         `json:"page"`
	Results *[]rawMovie `json:"results"`
}

type rawMovie struct {
	ID          *int64  `json:"id"`
	Title       *string `json:"title"`
	ReleaseDate *string `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
}

// apiError represents a TMDB error response.
type apiError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
