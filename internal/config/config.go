// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagehound/pagehound/pkg/types"
)

// Settings is the flat option mapping owned by the options surface. It is
// persisted in the synced settings namespace; the bulk controller and
// scheduler read it.
type Settings struct {
	// General
	DefaultExport         string `yaml:"default_export" json:"defaultExport"`
	NotificationTimeout   int    `yaml:"notification_timeout" json:"notificationTimeout"`
	AutoScrape            bool   `yaml:"auto_scrape" json:"autoScrape"`
	ShowNotifications     bool   `yaml:"show_notifications" json:"showNotifications"`
	AutoDetect            bool   `yaml:"auto_detect" json:"autoDetect"`
	EnableManualSelection bool   `yaml:"enable_manual_selection" json:"enableManualSelection"`

	// Schedule
	Schedule types.Schedule `yaml:"schedule" json:"schedule"`

	// Extraction toggles
	ExtractEmails   bool `yaml:"extract_emails" json:"extractEmailsOpt"`
	ExtractPhones   bool `yaml:"extract_phones" json:"extractPhonesOpt"`
	ExtractLinks    bool `yaml:"extract_links" json:"extractLinksOpt"`
	ExtractImages   bool `yaml:"extract_images" json:"extractImagesOpt"`
	ExtractProducts bool `yaml:"extract_products" json:"extractProductsOpt"`
	ExtractBusiness bool `yaml:"extract_business" json:"extractBusinessOpt"`
	ExtractReviews  bool `yaml:"extract_reviews" json:"extractReviewsOpt"`

	// Export
	CSVDelimiter   string `yaml:"csv_delimiter" json:"csvDelimiter"`
	IncludeHeaders bool   `yaml:"include_headers" json:"includeHeaders"`
	AutoDownload   bool   `yaml:"auto_download" json:"autoDownload"`
	ExportFilename string `yaml:"export_filename" json:"exportFilename"`
	OutputDir      string `yaml:"output_dir" json:"outputDir"`

	// Advanced / network
	RequestDelay      time.Duration `yaml:"request_delay" json:"requestDelay"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigationTimeout"`
	// MaxConcurrent is accepted for compatibility with existing settings
	// files. The bulk controller runs strictly sequentially and does not
	// consult it.
	MaxConcurrent   int      `yaml:"max_concurrent" json:"maxConcurrent"`
	RetryCount      int      `yaml:"retry_count" json:"retryCount"`
	ProxyEnabled    bool     `yaml:"proxy_enabled" json:"proxyEnabled"`
	ProxyURL        string   `yaml:"proxy_url" json:"proxyUrl"`
	UserAgent       string   `yaml:"user_agent" json:"userAgent"`
	ExcludedDomains []string `yaml:"excluded_domains" json:"excludedDomains"`
	AllowedDomains  []string `yaml:"allowed_domains" json:"allowedDomains"`
	MaxDataAgeDays  int      `yaml:"max_data_age_days" json:"maxDataAge"`
	MaxDataSizeMB   int      `yaml:"max_data_size_mb" json:"maxDataSize"`

	// Store and service surfaces
	StorePath  string `yaml:"store_path" json:"storePath"`
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
	Headless   bool   `yaml:"headless" json:"headless"`
}

// Default returns the declared defaults for every setting.
func Default() *Settings {
	return &Settings{
		DefaultExport:         "csv",
		NotificationTimeout:   3000,
		ShowNotifications:     true,
		AutoDetect:            true,
		EnableManualSelection: true,

		Schedule: types.Schedule{
			Frequency: "daily",
			DataType:  types.TypeAll,
			Time:      "09:00",
			DayOfWeek: 1,
		},

		ExtractEmails: true,
		ExtractPhones: true,
		ExtractLinks:  true,

		CSVDelimiter:   ",",
		IncludeHeaders: true,
		ExportFilename: "pagehound_data_{date}_{type}",
		OutputDir:      ".",

		RequestDelay:      500 * time.Millisecond,
		NavigationTimeout: 30 * time.Second,
		MaxConcurrent:     3,
		RetryCount:        3,

		MaxDataAgeDays: 30,
		MaxDataSizeMB:  10,

		StorePath:  "pagehound.db",
		ListenAddr: ":8089",
		Headless:   true,
	}
}

// LoadFromFile reads settings from a YAML file, applying defaults for any
// omitted option.
func LoadFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks the settings for consistency and fills derivable blanks.
func (s *Settings) Validate() error {
	switch s.DefaultExport {
	case "csv", "json", "html", "xlsx":
	case "":
		s.DefaultExport = "csv"
	default:
		return fmt.Errorf("unknown export format: %s", s.DefaultExport)
	}

	if len(s.CSVDelimiter) > 1 {
		return fmt.Errorf("csv delimiter must be a single character")
	}
	if s.CSVDelimiter == "" {
		s.CSVDelimiter = ","
	}

	if s.Schedule.Enabled {
		switch s.Schedule.Frequency {
		case "hourly", "daily", "weekly", "monthly":
		default:
			return fmt.Errorf("unknown schedule frequency: %s", s.Schedule.Frequency)
		}
		if s.Schedule.Frequency != "hourly" {
			if _, err := time.Parse("15:04", s.Schedule.Time); err != nil {
				return fmt.Errorf("invalid schedule time %q: %w", s.Schedule.Time, err)
			}
		}
		if s.Schedule.DayOfWeek < 0 || s.Schedule.DayOfWeek > 6 {
			return fmt.Errorf("schedule day of week must be 0-6")
		}
	}

	if s.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if s.NavigationTimeout < 0 {
		return fmt.Errorf("navigation timeout cannot be negative")
	}

	return nil
}

// AllowsURL applies the domain allow/deny lists to a target URL. An empty
// allow list admits everything not excluded; exclusion wins over allowance.
func (s *Settings) AllowsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range s.ExcludedDomains {
		if matchesDomain(host, domain) {
			return false
		}
	}
	if len(s.AllowedDomains) == 0 {
		return true
	}
	for _, domain := range s.AllowedDomains {
		if matchesDomain(host, domain) {
			return true
		}
	}
	return false
}

func matchesDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
