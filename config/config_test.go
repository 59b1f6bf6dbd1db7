package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

const sampleConfig = `
log_settings:
  level: debug
  format: json
poll:
  interval: 5s
  timeout: 2m
  max_transient_retries: 3
luis:
  endpoint: https://eastus.api.cognitive.microsoft.com
  key_env: MY_LUIS_KEY
  poll:
    interval: 1m
    timeout: 30m
    cron: "0 * * * * * *"
qnamaker:
  kb_name: Support FAQ
custom_vision:
  prediction_resource_id: /subscriptions/1/resourceGroups/cv/providers/Microsoft.CognitiveServices/accounts/cv-prediction
  tags:
    - name: Fir
      image_urls: [https://example.com/fir_1.jpg, https://example.com/fir_2.jpg]
redis_info:
  enable: true
  host: redis:6379
  ttl: 1h
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.IsNil(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := config.Load(path)
	assert.IsNil(t, err)
	assert.Equal(t, cfg.LogSettings.Level, "debug")
	assert.Equal(t, cfg.LogSettings.Format, "json")
	assert.Equal(t, cfg.Poll.Interval, 5*time.Second)
	assert.Equal(t, cfg.Poll.MaxTransientRetries, 3)
	assert.Equal(t, cfg.LUIS.Endpoint, "https://eastus.api.cognitive.microsoft.com")
	assert.Equal(t, cfg.LUIS.KeyEnv, "MY_LUIS_KEY")
	assert.Equal(t, cfg.LUIS.VersionID, "0.1")
	assert.Equal(t, cfg.QnAMaker.KBName, "Support FAQ")
	assert.Equal(t, cfg.QnAMaker.KeyEnv, config.QnAMakerKeyEnv)
	assert.Equal(t, cfg.CustomVision.KeyEnv, config.CustomVisionKeyEnv)
	assert.Equal(t, cfg.CustomVision.PublishName, "classifyModel")
	assert.Equal(t, len(cfg.CustomVision.Tags), 1)
	assert.Equal(t, cfg.CustomVision.Tags[0].ImageURLs[1], "https://example.com/fir_2.jpg")
	assert.Contains(t, cfg.CustomVision.PredictionResourceID, "cv-prediction")
	assert.Equal(t, cfg.RedisInfo.TTL, time.Hour)
	assert.Equal(t, cfg.RedisInfo.KeyPrefix, "cogsamples")

	policy, err := cfg.PollPolicy(cfg.LUIS.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, policy.Timeout, 30*time.Minute)
	assert.Equal(t, policy.Trigger.Description(), "CronTrigger::0 * * * * * *::UTC")

	policy, err = cfg.PollPolicy(cfg.QnAMaker.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, policy.Interval, 5*time.Second)
	assert.Equal(t, policy.Trigger, nil)

	policy, err = cfg.PollPolicy(cfg.MediaServices.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, policy.Interval, 15*time.Second)
	assert.Equal(t, policy.Timeout, 10*time.Minute)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotEqual(t, err, nil)

	_, err = config.Parse([]byte("poll: [1, 2"))
	assert.NotEqual(t, err, nil)
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.IsNil(t, cfg.Validate())
	assert.Equal(t, cfg.ContentModerator.KeyEnv, config.ContentModeratorKeyEnv)
	assert.Equal(t, cfg.LUIS.KeyEnv, config.LUISKeyEnv)
	assert.Equal(t, cfg.MediaServices.KeyEnv, config.MediaServicesTokenEnv)
	assert.Equal(t, cfg.CustomVision.KeyEnv, "AZURE_CUSTOM_VISION_TRAINING_KEY")
	assert.Equal(t, cfg.QnAMaker.DeleteOnFailure, true)
	assert.Equal(t, len(cfg.CustomVision.Tags), 2)
	assert.Equal(t, cfg.CustomVision.Tags[1].ImageURLs[0], "https://raw.githubusercontent.com/Azure-Samples/"+
		"cognitive-services-sample-data-files/master/CustomVision/ImageClassification/Images/"+
		"Japanese%20Cherry/japanese_cherry_1.jpg")

	policy, err := cfg.Poll.Policy()
	assert.IsNil(t, err)
	assert.Equal(t, policy, poll.NewDefaultPolicy())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"interval", "poll:\n  interval: 0s\n"},
		{"timeout", "poll:\n  interval: 1m\n  timeout: 30s\n"},
		{"backoff and cron", "poll:\n  cron: '* * * * *'\n  backoff:\n    initial: 1s\n"},
		{"backoff initial", "poll:\n  backoff:\n    max: 1s\n"},
		{"cron", "poll:\n  cron: 'not a cron'\n"},
		{"location", "poll:\n  cron: '* * * * *'\n  cron_location: Mars/Olympus\n"},
		{"key env", "luis:\n  key_env: ''\n"},
		{"service poll", "qnamaker:\n  poll:\n    interval: -1s\n"},
		{"custom vision endpoint", "custom_vision:\n  endpoint: ''\n"},
		{"custom vision tag", "custom_vision:\n  tags:\n    - name: Fir\n"},
		{"nats", "nats_info:\n  enable: true\n  url: ''\n"},
		{"redis", "redis_info:\n  enable: true\n  host: ''\n"},
		{"prometheus", "prometheus:\n  enable: true\n  metrics_path: metrics\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.config))
			assert.NotEqual(t, err, nil)
		})
	}
}

func TestPolicy_Backoff(t *testing.T) {
	policy, err := config.PollSettings{
		Interval: time.Second,
		Timeout:  time.Minute,
		Backoff:  &config.BackoffSettings{Initial: time.Second, Max: 8 * time.Second},
	}.Policy()
	assert.IsNil(t, err)
	assert.Equal(t, policy.Trigger.Description(), "BackoffTrigger::1s::8s")
}

func TestKey(t *testing.T) {
	t.Setenv("COGSAMPLES_TEST_KEY", " secret ")
	key, err := config.Key("COGSAMPLES_TEST_KEY")
	assert.IsNil(t, err)
	assert.Equal(t, key, "secret")

	t.Setenv("COGSAMPLES_TEST_KEY", "")
	_, err = config.Key("COGSAMPLES_TEST_KEY")
	assert.ErrorIs(t, err, config.ErrMissingKey)
	assert.Contains(t, err.Error(), "COGSAMPLES_TEST_KEY")
}
