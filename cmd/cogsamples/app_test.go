package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/menu"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

func TestRegister(t *testing.T) {
	a := &app{cfg: config.Default(), logger: logger.NoOpLogger{}}
	m := menu.New(strings.NewReader(""), io.Discard)
	assert.IsNil(t, a.register(m))
	assert.Equal(t, m.Categories(), []string{"Vision", "Language"})
	assert.Equal(t, m.Samples("Vision"), []string{"ContentModerator", "MediaServices", "CustomVision"})
	assert.Equal(t, m.Samples("Language"), []string{"LUIS", "QnAMaker"})
}

func TestHandler_MissingKey(t *testing.T) {
	t.Setenv(config.LUISKeyEnv, "")
	a := &app{cfg: config.Default(), logger: logger.NoOpLogger{}}
	m := menu.New(strings.NewReader("Language\nLUIS\n"), io.Discard)
	assert.IsNil(t, a.register(m))

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingKey)
	assert.Contains(t, err.Error(), config.LUISKeyEnv)
}

func TestHandler_MissingTrainingKey(t *testing.T) {
	t.Setenv(config.CustomVisionKeyEnv, "")
	a := &app{cfg: config.Default(), logger: logger.NoOpLogger{}}
	m := menu.New(strings.NewReader("Vision\nCustomVision\n"), io.Discard)
	assert.IsNil(t, a.register(m))

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingKey)
	assert.Contains(t, err.Error(), "AZURE_CUSTOM_VISION_TRAINING_KEY")
}

func TestEnv(t *testing.T) {
	a := &app{cfg: config.Default(), logger: logger.NoOpLogger{}}

	env, err := a.env(context.Background(), a.cfg.MediaServices.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, env.Policy.Interval, 15*time.Second)
	assert.Equal(t, env.Outcome == nil, true)
	env.Observer("mediaservices", "job-1")(poll.Running, 1)

	env, err = a.env(context.Background(), a.cfg.QnAMaker.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, env.Policy.Interval, 10*time.Second)

	env, err = a.env(context.Background(), a.cfg.CustomVision.ServiceInfo)
	assert.IsNil(t, err)
	assert.Equal(t, env.Policy.Interval, time.Second)
}
