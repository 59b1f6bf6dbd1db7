// Package config loads the YAML configuration of the samples runner.
// Subscription keys are never stored in the file: every service block
// names the environment variable holding its key.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Environment variables holding the service keys by default.
const (
	ContentModeratorKeyEnv = "CONTENT_MODERATOR_SUBSCRIPTION_KEY"
	LUISKeyEnv             = "AZURE_LUIS_KEY"
	QnAMakerKeyEnv         = "QNAMAKER_SUBSCRIPTION_KEY"
	MediaServicesTokenEnv  = "AZURE_MEDIA_SERVICES_TOKEN"
	CustomVisionKeyEnv     = "AZURE_CUSTOM_VISION_TRAINING_KEY"
)

const defaultEndpoint = "https://westus.api.cognitive.microsoft.com"

// ErrMissingKey is returned by Key when the environment variable is unset.
var ErrMissingKey = errors.New("missing subscription key")

type Config struct {
	LogSettings      logger.Settings      `yaml:"log_settings"`
	HTTP             HTTPSettings         `yaml:"http"`
	Poll             PollSettings         `yaml:"poll"`
	ContentModerator ContentModeratorInfo `yaml:"content_moderator"`
	MediaServices    MediaServicesInfo    `yaml:"media_services"`
	CustomVision     CustomVisionInfo     `yaml:"custom_vision"`
	LUIS             LUISInfo             `yaml:"luis"`
	QnAMaker         QnAMakerInfo         `yaml:"qnamaker"`
	NatsInfo         NatsInfo             `yaml:"nats_info"`
	RedisInfo        RedisInfo            `yaml:"redis_info"`
	Prometheus       PrometheusConf       `yaml:"prometheus"`
}

type HTTPSettings struct {
	Timeout  time.Duration `yaml:"timeout"`
	Throttle time.Duration `yaml:"throttle"`
}

// PollSettings is the YAML form of poll.Policy. At most one of Backoff and
// Cron may be set.
type PollSettings struct {
	Interval            time.Duration    `yaml:"interval"`
	Timeout             time.Duration    `yaml:"timeout"`
	MaxAttempts         int              `yaml:"max_attempts"`
	MaxTransientRetries int              `yaml:"max_transient_retries"`
	Backoff             *BackoffSettings `yaml:"backoff,omitempty"`
	Cron                string           `yaml:"cron,omitempty"`
	CronLocation        string           `yaml:"cron_location,omitempty"`
}

type BackoffSettings struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
	Jitter  bool          `yaml:"jitter"`
}

// ServiceInfo is shared by all service blocks. Poll overrides the global
// poll settings for the service when set.
type ServiceInfo struct {
	Endpoint string        `yaml:"endpoint"`
	KeyEnv   string        `yaml:"key_env"`
	Poll     *PollSettings `yaml:"poll,omitempty"`
}

type ContentModeratorInfo struct {
	ServiceInfo      `yaml:",inline"`
	Team             string `yaml:"team"`
	Workflow         string `yaml:"workflow"`
	ContentURL       string `yaml:"content_url"`
	CallbackEndpoint string `yaml:"callback_endpoint"`
}

type MediaServicesInfo struct {
	ServiceInfo    `yaml:",inline"`
	SubscriptionID string `yaml:"subscription_id"`
	ResourceGroup  string `yaml:"resource_group"`
	AccountName    string `yaml:"account_name"`
	Region         string `yaml:"region"`
	TransformName  string `yaml:"transform_name"`
	InputURL       string `yaml:"input_url"`
	NamePrefix     string `yaml:"name_prefix"`
	APIVersion     string `yaml:"api_version"`
}

// CustomVisionInfo configures the image classifier training sample. The
// iteration is published only when PredictionResourceID is set.
type CustomVisionInfo struct {
	ServiceInfo          `yaml:",inline"`
	ProjectName          string      `yaml:"project_name"`
	PublishName          string      `yaml:"publish_name"`
	PredictionResourceID string      `yaml:"prediction_resource_id"`
	Tags                 []TagImages `yaml:"tags"`
}

// TagImages lists the training images of one tag.
type TagImages struct {
	Name      string   `yaml:"name"`
	ImageURLs []string `yaml:"image_urls"`
}

type LUISInfo struct {
	ServiceInfo `yaml:",inline"`
	AppName     string `yaml:"app_name"`
	VersionID   string `yaml:"version_id"`
	Culture     string `yaml:"culture"`
	Region      string `yaml:"region"`
}

type QnAMakerInfo struct {
	ServiceInfo `yaml:",inline"`
	KBName      string `yaml:"kb_name"`
	// DeleteOnFailure deletes the knowledge base when its update fails.
	DeleteOnFailure bool `yaml:"delete_on_failure"`
}

type NatsInfo struct {
	Enable  bool   `yaml:"enable"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type RedisInfo struct {
	Enable    bool          `yaml:"enable"`
	Host      string        `yaml:"host"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	DBName    int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type PrometheusConf struct {
	Enable      bool   `yaml:"enable"`
	Listen      string `yaml:"listen"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogSettings: logger.Settings{Level: "info", Format: "text"},
		HTTP: HTTPSettings{
			Timeout:  30 * time.Second,
			Throttle: 2 * time.Second,
		},
		Poll: PollSettings{
			Interval: 10 * time.Second,
			Timeout:  10 * time.Minute,
		},
		ContentModerator: ContentModeratorInfo{
			ServiceInfo: ServiceInfo{
				Endpoint: defaultEndpoint,
				KeyEnv:   ContentModeratorKeyEnv,
			},
			Team:             "testreviewwilx",
			Workflow:         "default",
			ContentURL:       "https://moderatorsampleimages.blob.core.windows.net/samples/sample2.jpg",
			CallbackEndpoint: "https://requestb.in/vxke1mvx",
		},
		MediaServices: MediaServicesInfo{
			ServiceInfo: ServiceInfo{
				Endpoint: "https://management.azure.com",
				KeyEnv:   MediaServicesTokenEnv,
				Poll: &PollSettings{
					Interval: 15 * time.Second,
					Timeout:  10 * time.Minute,
				},
			},
			SubscriptionID: "00000000-0000-0000-0000-000000000000",
			ResourceGroup:  "amsResourceGroup",
			AccountName:    "amsaccount",
			Region:         "West US 2",
			TransformName:  "MyVideoAnalyzerTransformName",
			InputURL:       "https://shigeyfampdemo.azurewebsites.net/videos/ignite.mp4",
			NamePrefix:     "prefix",
			APIVersion:     "2021-06-01",
		},
		CustomVision: CustomVisionInfo{
			ServiceInfo: ServiceInfo{
				Endpoint: "https://southcentralus.api.cognitive.microsoft.com",
				KeyEnv:   CustomVisionKeyEnv,
				Poll: &PollSettings{
					Interval: time.Second,
					Timeout:  10 * time.Minute,
				},
			},
			ProjectName: "Sample Project",
			PublishName: "classifyModel",
			Tags: []TagImages{
				{Name: "Hemlock", ImageURLs: sampleImages("Hemlock", "hemlock")},
				{Name: "Japanese Cherry", ImageURLs: sampleImages("Japanese%20Cherry", "japanese_cherry")},
			},
		},
		LUIS: LUISInfo{
			ServiceInfo: ServiceInfo{
				Endpoint: defaultEndpoint,
				KeyEnv:   LUISKeyEnv,
			},
			AppName:   "Contoso",
			VersionID: "0.1",
			Culture:   "en-us",
			Region:    "westus",
		},
		QnAMaker: QnAMakerInfo{
			ServiceInfo: ServiceInfo{
				Endpoint: defaultEndpoint,
				KeyEnv:   QnAMakerKeyEnv,
			},
			KBName:          "QnA Maker FAQ",
			DeleteOnFailure: true,
		},
		NatsInfo: NatsInfo{
			URL:     "nats://127.0.0.1:4222",
			Subject: "cogsamples.jobs",
		},
		RedisInfo: RedisInfo{
			Host:      "127.0.0.1:6379",
			KeyPrefix: "cogsamples",
			TTL:       24 * time.Hour,
		},
		Prometheus: PrometheusConf{
			Listen:      ":9090",
			MetricsPath: "/metrics",
		},
	}
}

const sampleImageRoot = "https://raw.githubusercontent.com/Azure-Samples/" +
	"cognitive-services-sample-data-files/master/CustomVision/ImageClassification/Images/"

func sampleImages(dir, prefix string) []string {
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s%s/%s_%d.jpg", sampleImageRoot, dir, prefix, i+1)
	}
	return urls
}

// Load reads the YAML file at path over the default configuration and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the default configuration and validates
// the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Poll.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("poll: %w", err))
	}
	services := map[string]ServiceInfo{
		"content_moderator": c.ContentModerator.ServiceInfo,
		"media_services":    c.MediaServices.ServiceInfo,
		"custom_vision":     c.CustomVision.ServiceInfo,
		"luis":              c.LUIS.ServiceInfo,
		"qnamaker":          c.QnAMaker.ServiceInfo,
	}
	for name, svc := range services {
		if svc.Endpoint == "" {
			errs = append(errs, fmt.Errorf("%s: endpoint is empty", name))
		}
		if svc.KeyEnv == "" {
			errs = append(errs, fmt.Errorf("%s: key_env is empty", name))
		}
		if svc.Poll != nil {
			if _, err := svc.Poll.Policy(); err != nil {
				errs = append(errs, fmt.Errorf("%s.poll: %w", name, err))
			}
		}
	}
	for _, tag := range c.CustomVision.Tags {
		if tag.Name == "" || len(tag.ImageURLs) == 0 {
			errs = append(errs, errors.New("custom_vision: every tag needs a name and images"))
			break
		}
	}
	if c.HTTP.Throttle < 0 || c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http: negative duration"))
	}
	if c.NatsInfo.Enable && (c.NatsInfo.URL == "" || c.NatsInfo.Subject == "") {
		errs = append(errs, errors.New("nats_info: url and subject are required"))
	}
	if c.RedisInfo.Enable && c.RedisInfo.Host == "" {
		errs = append(errs, errors.New("redis_info: host is required"))
	}
	if c.Prometheus.Enable && !strings.HasPrefix(c.Prometheus.MetricsPath, "/") {
		errs = append(errs, errors.New("prometheus: metrics_path must start with /"))
	}
	return errors.Join(errs...)
}

// PollPolicy returns the poll policy of a service: its own poll settings
// if set, the global ones otherwise.
func (c *Config) PollPolicy(svc ServiceInfo) (poll.Policy, error) {
	if svc.Poll != nil {
		return svc.Poll.Policy()
	}
	return c.Poll.Policy()
}

// Policy converts the settings to a validated poll.Policy.
func (p PollSettings) Policy() (poll.Policy, error) {
	policy := poll.Policy{
		Interval:            p.Interval,
		Timeout:             p.Timeout,
		MaxAttempts:         p.MaxAttempts,
		MaxTransientRetries: p.MaxTransientRetries,
	}
	switch {
	case p.Backoff != nil && p.Cron != "":
		return policy, fmt.Errorf("%w: backoff and cron are mutually exclusive",
			poll.ErrInvalidPolicy)
	case p.Backoff != nil:
		policy.Trigger = &poll.BackoffTrigger{
			Initial: p.Backoff.Initial,
			Max:     p.Backoff.Max,
			Jitter:  p.Backoff.Jitter,
		}
		if p.Backoff.Initial <= 0 {
			return policy, fmt.Errorf("%w: backoff initial delay must be positive",
				poll.ErrInvalidPolicy)
		}
	case p.Cron != "":
		loc := time.UTC
		if p.CronLocation != "" {
			var err error
			if loc, err = time.LoadLocation(p.CronLocation); err != nil {
				return policy, fmt.Errorf("%w: %w", poll.ErrInvalidPolicy, err)
			}
		}
		trigger, err := poll.NewCronTriggerWithLoc(p.Cron, loc)
		if err != nil {
			return policy, err
		}
		policy.Trigger = trigger
	}
	return policy, policy.Validate()
}

// Key returns the value of the environment variable envVar.
func Key(envVar string) (string, error) {
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return "", fmt.Errorf("%w: please set/export the environment variable %s",
			ErrMissingKey, envVar)
	}
	return key, nil
}
