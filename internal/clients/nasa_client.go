package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cosmicwatch/internal/logger"
)

const (
	// MaxFeedDays: ограничение NeoWs на окно одного запроса /feed.
	MaxFeedDays = 7

	dateLayout     = "2006-01-02"
	fullDateLayout = "2006-Jan-02 15:04"
	defaultBody    = "Earth"
)

type NEOClient interface {
	FetchFeed(ctx context.Context, startDate, endDate time.Time) ([]FeedAsteroid, error)
	LookupAsteroid(ctx context.Context, asteroidID string) (*FeedAsteroid, error)
}

// FeedAsteroid: нормализованная запись NeoWs с ее сближениями.
type FeedAsteroid struct {
	ID                   string
	Name                 string
	AbsoluteMagnitude    *float64
	IsHazardous          bool
	EstimatedDiameterMin *float64
	EstimatedDiameterMax *float64
	NasaJPLURL           string
	// OrbitalData есть только в ответе /neo/{id}; в фиде пусто.
	OrbitalData json.RawMessage
	Approaches  []FeedApproach
}

type FeedApproach struct {
	ApproachDate      time.Time
	ApproachDateFull  *time.Time
	VelocityKmh       *float64
	MissDistanceKm    *float64
	MissDistanceLunar *float64
	OrbitingBody      string
}

// FetchError: сеть недоступна или NeoWs вернул не-2xx.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("neows %s: API returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("neows %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type NEOConfig struct {
	APIKey  string
	BaseURL string
	// HTTPClient можно подменить в тестах
	HTTPClient *http.Client
}

type neoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewNEOClient(config NEOConfig) NEOClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		}
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.nasa.gov/neo/rest/v1"
	}

	return &neoClient{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		client:  httpClient,
	}
}

// ClampFeedWindow обрезает окно до MaxFeedDays: end > start+7d превращается в start+7d.
func ClampFeedWindow(startDate, endDate time.Time) (time.Time, time.Time) {
	start := TruncateDay(startDate)
	end := TruncateDay(endDate)
	if limit := start.AddDate(0, 0, MaxFeedDays); end.After(limit) {
		end = limit
	}
	return start, end
}

// TruncateDay приводит время к полуночи UTC той же календарной даты.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *neoClient) FetchFeed(ctx context.Context, startDate, endDate time.Time) ([]FeedAsteroid, error) {
	start, end := ClampFeedWindow(startDate, endDate)

	params := url.Values{}
	params.Add("start_date", start.Format(dateLayout))
	params.Add("end_date", end.Format(dateLayout))

	body, status, err := c.get(ctx, c.baseURL+"/feed", params)
	if err != nil {
		return nil, &FetchError{Op: "feed", Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{Op: "feed", StatusCode: status}
	}

	asteroids, err := ParseFeedResponse(body)
	if err != nil {
		return nil, &FetchError{Op: "feed", Err: err}
	}

	return asteroids, nil
}

// LookupAsteroid возвращает (nil, nil), если NeoWs не знает такой id.
func (c *neoClient) LookupAsteroid(ctx context.Context, asteroidID string) (*FeedAsteroid, error) {
	body, status, err := c.get(ctx, c.baseURL+"/neo/"+url.PathEscape(asteroidID), url.Values{})
	if err != nil {
		return nil, &FetchError{Op: "lookup", Err: err}
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &FetchError{Op: "lookup", StatusCode: status}
	}

	var raw neoObject
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Op: "lookup", Err: fmt.Errorf("decode JSON: %w", err)}
	}

	asteroid := normalizeObject(raw)
	return &asteroid, nil
}

func (c *neoClient) get(ctx context.Context, reqURL string, params url.Values) ([]byte, int, error) {
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "Cosmic-Watch/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return body, resp.StatusCode, nil
}

type neoFeedResponse struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]neoObject `json:"near_earth_objects"`
}

type neoObject struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	NasaJPLURL         string   `json:"nasa_jpl_url"`
	AbsoluteMagnitudeH *float64 `json:"absolute_magnitude_h"`
	EstimatedDiameter  struct {
		Kilometers struct {
			Min *float64 `json:"estimated_diameter_min"`
			Max *float64 `json:"estimated_diameter_max"`
		} `json:"kilometers"`
	} `json:"estimated_diameter"`
	IsPotentiallyHazardous bool            `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData      []neoApproach   `json:"close_approach_data"`
	OrbitalData            json.RawMessage `json:"orbital_data"`
}

type neoApproach struct {
	CloseApproachDate      string `json:"close_approach_date"`
	CloseApproachDateFull  string `json:"close_approach_date_full"`
	EpochDateCloseApproach int64  `json:"epoch_date_close_approach"`
	RelativeVelocity       struct {
		KilometersPerHour string `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers string `json:"kilometers"`
		Lunar      string `json:"lunar"`
	} `json:"miss_distance"`
	OrbitingBody string `json:"orbiting_body"`
}

// ParseFeedResponse разворачивает near_earth_objects по датам в плоский список.
// Объект, встретившийся под несколькими датами, склеивается в одну запись.
func ParseFeedResponse(body []byte) ([]FeedAsteroid, error) {
	var raw neoFeedResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	dates := make([]string, 0, len(raw.NearEarthObjects))
	for date := range raw.NearEarthObjects {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var asteroids []FeedAsteroid
	index := make(map[string]int)

	for _, date := range dates {
		for _, obj := range raw.NearEarthObjects[date] {
			if obj.ID == "" {
				continue
			}
			asteroid := normalizeObject(obj)
			if i, ok := index[asteroid.ID]; ok {
				asteroids[i].Approaches = mergeApproaches(asteroids[i].Approaches, asteroid.Approaches)
				continue
			}
			index[asteroid.ID] = len(asteroids)
			asteroids = append(asteroids, asteroid)
		}
	}

	return asteroids, nil
}

func normalizeObject(obj neoObject) FeedAsteroid {
	asteroid := FeedAsteroid{
		ID:                   obj.ID,
		Name:                 obj.Name,
		AbsoluteMagnitude:    obj.AbsoluteMagnitudeH,
		IsHazardous:          obj.IsPotentiallyHazardous,
		EstimatedDiameterMin: obj.EstimatedDiameter.Kilometers.Min,
		EstimatedDiameterMax: obj.EstimatedDiameter.Kilometers.Max,
		NasaJPLURL:           obj.NasaJPLURL,
	}
	if len(obj.OrbitalData) > 0 && string(obj.OrbitalData) != "null" {
		asteroid.OrbitalData = obj.OrbitalData
	}

	for _, raw := range obj.CloseApproachData {
		approach, err := normalizeApproach(raw)
		if err != nil {
			logger.Component("neows").WithField("asteroid_id", obj.ID).
				Warnf("Skipping malformed close approach: %v", err)
			continue
		}
		asteroid.Approaches = append(asteroid.Approaches, approach)
	}

	return asteroid
}

func normalizeApproach(raw neoApproach) (FeedApproach, error) {
	date, err := time.ParseInLocation(dateLayout, raw.CloseApproachDate, time.UTC)
	if err != nil {
		return FeedApproach{}, fmt.Errorf("parse close_approach_date %q: %w", raw.CloseApproachDate, err)
	}

	approach := FeedApproach{
		ApproachDate:      date,
		ApproachDateFull:  parseFullDate(raw.CloseApproachDateFull, raw.EpochDateCloseApproach),
		VelocityKmh:       parseFloat(raw.RelativeVelocity.KilometersPerHour),
		MissDistanceKm:    parseFloat(raw.MissDistance.Kilometers),
		MissDistanceLunar: parseFloat(raw.MissDistance.Lunar),
		OrbitingBody:      raw.OrbitingBody,
	}
	if approach.OrbitingBody == "" {
		approach.OrbitingBody = defaultBody
	}

	return approach, nil
}

// parseFullDate: сначала "2006-Jan-02 15:04", затем epoch в миллисекундах.
func parseFullDate(value string, epochMillis int64) *time.Time {
	if value != "" {
		if t, err := time.ParseInLocation(fullDateLayout, value, time.UTC); err == nil {
			return &t
		}
	}
	if epochMillis > 0 {
		t := time.UnixMilli(epochMillis).UTC()
		return &t
	}
	return nil
}

func parseFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func mergeApproaches(existing, incoming []FeedApproach) []FeedApproach {
	seen := make(map[time.Time]bool, len(existing))
	for _, a := range existing {
		seen[a.ApproachDate] = true
	}
	for _, a := range incoming {
		if !seen[a.ApproachDate] {
			existing = append(existing, a)
			seen[a.ApproachDate] = true
		}
	}
	return existing
}
