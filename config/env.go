package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LegacyWebhookEnv is consulted when PUSHSTREAK_WEBHOOK_URL is unset.
const LegacyWebhookEnv = "DISCORD_WEBHOOK_URL"

var durationType = reflect.TypeOf(time.Duration(0))

// loadFromEnv overlays environment variables onto cfg.
func loadFromEnv(cfg *Config) error {
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if err := walkEnv(reflect.ValueOf(cfg), getenv); err != nil {
		return err
	}
	if cfg.Webhook.URL == "" {
		cfg.Webhook.URL = strings.TrimSpace(getenv(LegacyWebhookEnv))
	}
	return nil
}

// walkEnv visits every field with an env tag, descending into nested structs.
func walkEnv(v reflect.Value, getenv func(string) string) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("expected pointer, got %s", v.Kind())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)

		if field.Kind() == reflect.Struct {
			if field.CanAddr() {
				if err := walkEnv(field.Addr(), getenv); err != nil {
					return err
				}
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := getenv(name)
		if raw == "" {
			continue
		}
		if err := setField(field, sf, raw); err != nil {
			return fmt.Errorf("failed to set field %s from env var %s: %w", sf.Name, name, err)
		}
	}
	return nil
}

// setField parses raw into the field according to its kind.
func setField(field reflect.Value, sf reflect.StructField, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field %s is not settable", sf.Name)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", raw)
		}
		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if sf.Type == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration value: %s", raw)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", raw)
		}
		field.SetInt(n)

	case reflect.Map:
		if sf.Type.Key().Kind() != reflect.String || sf.Type.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported map type: %s -> %s", sf.Type.Key().Kind(), sf.Type.Elem().Kind())
		}
		// key=value,key2=value2
		m := reflect.MakeMap(sf.Type)
		for _, pair := range strings.Split(raw, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				return fmt.Errorf("invalid map entry format: %s", pair)
			}
			m.SetMapIndex(reflect.ValueOf(kv[0]), reflect.ValueOf(kv[1]))
		}
		field.Set(m)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
