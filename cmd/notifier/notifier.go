package main

import (
    "context"
    "time"

    "github.com/go-redis/redis/v8"
    "github.com/stellarcompass/compass/pkg/logger"
    "github.com/stellarcompass/compass/pkg/models"
    "github.com/stellarcompass/compass/pkg/notify"
    "github.com/stellarcompass/compass/pkg/redisclient"
    "go.uber.org/zap"
)

// runNotifier tails the alert stream and routes each alert to the delivery
// channels, archiving it into the per-wallet history.
func runNotifier(ctx context.Context, rdb *redisclient.Client, svc *notify.Service) {
    logger.Log.Info("notifier consumer started")

    // Start from new entries only; history replay belongs to the REST API
    lastID := "$"

    for {
        select {
        case <-ctx.Done():
            logger.Log.Info("runNotifier: context cancelled")
            return
        default:
            res, err := rdb.Client().XRead(ctx, &redis.XReadArgs{
                Streams: []string{models.AlertStream, lastID},
                Count:   100,
                Block:   500 * time.Millisecond,
            }).Result()

            if err != nil && err != redis.Nil {
                if ctx.Err() != nil {
                    return
                }
                logger.Log.Warn("XREAD error", zap.Error(err))
                time.Sleep(200 * time.Millisecond)
                continue
            }

            if len(res) == 0 || len(res[0].Messages) == 0 {
                continue
            }

            for _, msg := range res[0].Messages {
                lastID = msg.ID

                alert, err := models.AlertFromMap(msg.Values)
                if err != nil {
                    logger.Log.Warn("skipping malformed alert", zap.String("id", msg.ID), zap.Error(err))
                    continue
                }

                handleAlert(ctx, rdb, svc, alert)
            }
        }
    }
}

// handleAlert archives the alert and fans it out to the delivery channels.
func handleAlert(ctx context.Context, rdb *redisclient.Client, svc *notify.Service, alert models.Alert) {
    // 1) Archive into the capped per-wallet history
    if alert.Wallet != "" {
        if payload, err := alert.ToJSON(); err == nil {
            key := models.AlertHistoryKey(alert.Wallet)
            if err := rdb.PushCapped(ctx, key, payload, models.AlertHistoryMax); err != nil {
                logger.Log.Warn("alert history write failed", zap.String("id", alert.ID), zap.Error(err))
            }
        }
    }

    // 2) Deliver per the stored preferences
    svc.Deliver(alert, loadSettings(ctx, rdb))

    logger.Log.Info("alert processed",
        zap.String("id", alert.ID),
        zap.String("type", alert.Type),
        zap.String("priority", alert.Priority))
}

// loadSettings reads notification preferences from Redis. Missing or broken
// settings degrade to channel defaults.
func loadSettings(ctx context.Context, rdb *redisclient.Client) models.Settings {
    ctx, cancel := context.WithTimeout(ctx, time.Second)
    defer cancel()

    values, err := rdb.HGetAll(ctx, models.SettingsKey).Result()
    if err != nil {
        logger.Log.Warn("settings read failed", zap.Error(err))
        return models.Settings{}
    }

    settings := models.Settings{
        PhoneNumber:   values["phone_number"],
        RiskTolerance: values["risk_tolerance"],
    }
    if v, ok := values["email_notifications"]; ok {
        b := v == "true"
        settings.EmailNotifications = &b
    }
    if v, ok := values["sms_notifications"]; ok {
        b := v == "true"
        settings.SMSNotifications = &b
    }
    if v, ok := values["push_notifications"]; ok {
        b := v == "true"
        settings.PushNotifications = &b
    }
    return settings
}
