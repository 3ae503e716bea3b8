package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/krisalay/sharecache/eviction"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/recognizer"
)

// EnvPrefix prefixes every environment override, e.g. SHARECACHE_IMAGE_TIMEOUT_VALUE.
const EnvPrefix = "SHARECACHE"

var ErrInvalidParam = errors.New("invalid configuration")

// Timeout is the lifetime and cap of one cache: {value, unit, maxSize}.
type Timeout struct {
	Value   int64
	Unit    string
	MaxSize int
}

var units = map[string]time.Duration{
	"NANOSECONDS":  time.Nanosecond,
	"MICROSECONDS": time.Microsecond,
	"MILLISECONDS": time.Millisecond,
	"SECONDS":      time.Second,
	"MINUTES":      time.Minute,
	"HOURS":        time.Hour,
	"DAYS":         24 * time.Hour,
}

// Duration converts Value and Unit. Units are case-insensitive.
func (t Timeout) Duration() (time.Duration, error) {
	unit, ok := units[strings.ToUpper(t.Unit)]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidParam, "unknown time unit %q", t.Unit)
	}
	if t.Value <= 0 {
		return 0, errors.Wrapf(ErrInvalidParam, "timeout value must be positive, got %d", t.Value)
	}
	return time.Duration(t.Value) * unit, nil
}

type CacheParams struct {
	Timeout  Timeout
	TTL      time.Duration
	Shards   int
	Eviction eviction.PolicyType
}

type ParamTable struct {
	v *viper.Viper

	Address       string
	SessionCookie string

	Image CacheParams
	Text  CacheParams

	ThumbnailEnabled   bool
	ThumbnailSize      int
	ThumbnailMaxPixels int64

	EventWindow     time.Duration
	EventBufferSize int
	SweepInterval   time.Duration

	JobWorkers         int
	JobDeliveryTimeout time.Duration
	JobTimeout         time.Duration

	OCR recognizer.Config

	Locales []string

	Log log.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.sessionCookie", "SHARECACHE_SESSION")

	v.SetDefault("image.timeout.value", 20)
	v.SetDefault("image.timeout.unit", "MINUTES")
	v.SetDefault("image.timeout.maxSize", 128)
	v.SetDefault("image.shards", 1)
	v.SetDefault("image.eviction", string(eviction.LRU))

	v.SetDefault("text.timeout.value", 26)
	v.SetDefault("text.timeout.unit", "HOURS")
	v.SetDefault("text.timeout.maxSize", 256)
	v.SetDefault("text.shards", 1)
	v.SetDefault("text.eviction", string(eviction.LRU))

	v.SetDefault("thumbnail.enabled", false)
	v.SetDefault("thumbnail.size", 300)
	v.SetDefault("thumbnail.maxPixels", 50_000_000)

	v.SetDefault("events.window", "1s")
	v.SetDefault("events.bufferSize", 256)
	v.SetDefault("events.sweepInterval", "30s")

	v.SetDefault("jobs.workers", 0)
	v.SetDefault("jobs.deliveryTimeout", "30s")
	v.SetDefault("jobs.timeout", "2m")

	v.SetDefault("ocr.baseURL", "")
	v.SetDefault("ocr.apiKey", "")
	v.SetDefault("ocr.model", "")

	v.SetDefault("locales", []string{"en", "zh-TW"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.filename", "")
	v.SetDefault("log.file.maxSize", 300)
	v.SetDefault("log.file.maxDays", 0)
	v.SetDefault("log.file.maxBackups", 0)
}

/*
Load builds the ParamTable from, in increasing priority: built-in defaults, the
YAML file at path (skipped when path is empty) and SHARECACHE_* environment
variables.
*/
func Load(path string) (*ParamTable, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	pt := &ParamTable{v: v}
	if err := pt.initParams(); err != nil {
		return nil, err
	}
	return pt, nil
}

func (pt *ParamTable) initParams() error {
	pt.Address = cast.ToString(pt.v.Get("http.address"))
	pt.SessionCookie = cast.ToString(pt.v.Get("http.sessionCookie"))

	var err error
	if pt.Image, err = pt.initCache("image"); err != nil {
		return err
	}
	if pt.Text, err = pt.initCache("text"); err != nil {
		return err
	}

	pt.ThumbnailEnabled = cast.ToBool(pt.v.Get("thumbnail.enabled"))
	if pt.ThumbnailSize, err = pt.positiveInt("thumbnail.size"); err != nil {
		return err
	}
	if pt.ThumbnailMaxPixels, err = cast.ToInt64E(pt.v.Get("thumbnail.maxPixels")); err != nil || pt.ThumbnailMaxPixels <= 0 {
		return errors.Wrapf(ErrInvalidParam, "thumbnail.maxPixels must be a positive integer, got %v", pt.v.Get("thumbnail.maxPixels"))
	}

	if pt.EventWindow, err = pt.positiveDuration("events.window"); err != nil {
		return err
	}
	if pt.EventBufferSize, err = pt.positiveInt("events.bufferSize"); err != nil {
		return err
	}
	if pt.SweepInterval, err = cast.ToDurationE(pt.v.Get("events.sweepInterval")); err != nil {
		return errors.Wrap(ErrInvalidParam, "events.sweepInterval")
	}

	pt.JobWorkers = cast.ToInt(pt.v.Get("jobs.workers"))
	if pt.JobDeliveryTimeout, err = pt.positiveDuration("jobs.deliveryTimeout"); err != nil {
		return err
	}
	if pt.JobTimeout, err = pt.positiveDuration("jobs.timeout"); err != nil {
		return err
	}

	pt.OCR = recognizer.Config{
		BaseURL: cast.ToString(pt.v.Get("ocr.baseURL")),
		APIKey:  cast.ToString(pt.v.Get("ocr.apiKey")),
		Model:   cast.ToString(pt.v.Get("ocr.model")),
	}

	pt.Locales = cast.ToStringSlice(pt.v.Get("locales"))
	if len(pt.Locales) == 1 && strings.Contains(pt.Locales[0], ",") {
		// env values arrive as one comma-separated string
		pt.Locales = strings.Split(pt.Locales[0], ",")
	}

	pt.initLogCfg()
	return nil
}

func (pt *ParamTable) initCache(prefix string) (CacheParams, error) {
	p := CacheParams{
		Timeout: Timeout{
			Value: cast.ToInt64(pt.v.Get(prefix + ".timeout.value")),
			Unit:  cast.ToString(pt.v.Get(prefix + ".timeout.unit")),
		},
		Shards: cast.ToInt(pt.v.Get(prefix + ".shards")),
	}

	var err error
	if p.Timeout.MaxSize, err = pt.positiveInt(prefix + ".timeout.maxSize"); err != nil {
		return p, err
	}
	if p.TTL, err = p.Timeout.Duration(); err != nil {
		return p, errors.Wrap(err, prefix+".timeout")
	}
	if p.Eviction, err = eviction.ParsePolicyType(strings.ToUpper(cast.ToString(pt.v.Get(prefix + ".eviction")))); err != nil {
		return p, errors.Mark(errors.Wrap(err, prefix+".eviction"), ErrInvalidParam)
	}
	if p.Shards < 1 {
		p.Shards = 1
	}
	return p, nil
}

func (pt *ParamTable) initLogCfg() {
	pt.Log = log.Config{
		Level:  cast.ToString(pt.v.Get("log.level")),
		Format: cast.ToString(pt.v.Get("log.format")),
	}
	pt.Log.File.Filename = cast.ToString(pt.v.Get("log.file.filename"))
	pt.Log.File.MaxSize = cast.ToInt(pt.v.Get("log.file.maxSize"))
	pt.Log.File.MaxDays = cast.ToInt(pt.v.Get("log.file.maxDays"))
	pt.Log.File.MaxBackups = cast.ToInt(pt.v.Get("log.file.maxBackups"))
}

func (pt *ParamTable) positiveInt(key string) (int, error) {
	n, err := cast.ToIntE(pt.v.Get(key))
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(ErrInvalidParam, "%s must be a positive integer, got %v", key, pt.v.Get(key))
	}
	return n, nil
}

func (pt *ParamTable) positiveDuration(key string) (time.Duration, error) {
	d, err := cast.ToDurationE(pt.v.Get(key))
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(ErrInvalidParam, "%s must be a positive duration, got %v", key, pt.v.Get(key))
	}
	return d, nil
}

// Get exposes a raw value for keys without a typed field.
func (pt *ParamTable) Get(key string) any {
	return pt.v.Get(key)
}
