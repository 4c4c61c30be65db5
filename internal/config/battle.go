package config

import (
	"time"

	"github.com/spf13/viper"
)

// BattleConfig holds the tunables of the battle lifecycle and flame economy
type BattleConfig struct {
	VoteCost         int64
	WinnerReward     int64
	MaxGift          int64
	VotingWindow     time.Duration
	EntryWindow      time.Duration
	SweepInterval    time.Duration
	SweepBatchSize   int
	SweepConcurrency int
	OpTimeout        time.Duration
	ConflictRetries  int
	RetryBackoff     time.Duration
	InviteTTL        time.Duration
}

// LoadBattleConfig reads battle.* keys (BATTLE_* env) with defaults
func LoadBattleConfig() *BattleConfig {
	viper.SetDefault("battle.vote_cost", 1)
	viper.SetDefault("battle.winner_reward", 3)
	viper.SetDefault("battle.max_gift", 1000)
	viper.SetDefault("battle.voting_window", 6*24*time.Hour)
	viper.SetDefault("battle.entry_window", 3*24*time.Hour)
	viper.SetDefault("battle.sweep_interval", time.Minute)
	viper.SetDefault("battle.sweep_batch_size", 100)
	viper.SetDefault("battle.sweep_concurrency", 4)
	viper.SetDefault("battle.op_timeout", 10*time.Second)
	viper.SetDefault("battle.conflict_retries", 1)
	viper.SetDefault("battle.retry_backoff", 50*time.Millisecond)
	viper.SetDefault("battle.invite_ttl", 24*time.Hour)

	viper.BindEnv("battle.vote_cost", "BATTLE_VOTE_COST")
	viper.BindEnv("battle.winner_reward", "BATTLE_WINNER_REWARD")
	viper.BindEnv("battle.max_gift", "BATTLE_MAX_GIFT")
	viper.BindEnv("battle.voting_window", "BATTLE_VOTING_WINDOW")
	viper.BindEnv("battle.entry_window", "BATTLE_ENTRY_WINDOW")
	viper.BindEnv("battle.sweep_interval", "BATTLE_SWEEP_INTERVAL")
	viper.BindEnv("battle.sweep_batch_size", "BATTLE_SWEEP_BATCH_SIZE")
	viper.BindEnv("battle.sweep_concurrency", "BATTLE_SWEEP_CONCURRENCY")
	viper.BindEnv("battle.op_timeout", "BATTLE_OP_TIMEOUT")
	viper.BindEnv("battle.conflict_retries", "BATTLE_CONFLICT_RETRIES")
	viper.BindEnv("battle.retry_backoff", "BATTLE_RETRY_BACKOFF")
	viper.BindEnv("battle.invite_ttl", "BATTLE_INVITE_TTL")

	return &BattleConfig{
		VoteCost:         viper.GetInt64("battle.vote_cost"),
		WinnerReward:     viper.GetInt64("battle.winner_reward"),
		MaxGift:          viper.GetInt64("battle.max_gift"),
		VotingWindow:     viper.GetDuration("battle.voting_window"),
		EntryWindow:      viper.GetDuration("battle.entry_window"),
		SweepInterval:    viper.GetDuration("battle.sweep_interval"),
		SweepBatchSize:   viper.GetInt("battle.sweep_batch_size"),
		SweepConcurrency: viper.GetInt("battle.sweep_concurrency"),
		OpTimeout:        viper.GetDuration("battle.op_timeout"),
		ConflictRetries:  viper.GetInt("battle.conflict_retries"),
		RetryBackoff:     viper.GetDuration("battle.retry_backoff"),
		InviteTTL:        viper.GetDuration("battle.invite_ttl"),
	}
}

// DefaultBattleConfig returns the built-in defaults without consulting viper
func DefaultBattleConfig() *BattleConfig {
	return &BattleConfig{
		VoteCost:         1,
		WinnerReward:     3,
		MaxGift:          1000,
		VotingWindow:     6 * 24 * time.Hour,
		EntryWindow:      3 * 24 * time.Hour,
		SweepInterval:    time.Minute,
		SweepBatchSize:   100,
		SweepConcurrency: 4,
		OpTimeout:        10 * time.Second,
		ConflictRetries:  1,
		RetryBackoff:     50 * time.Millisecond,
		InviteTTL:        24 * time.Hour,
	}
}
