package game

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyBank is returned when a scenario is requested from an empty bank.
var ErrEmptyBank = errors.New("game: scenario bank is empty")

// Bank is a pool of improv scenario prompts. Selection is uniform-random
// with replacement, so repeats across rounds are possible.
type Bank []string

// Pick selects a random scenario from the bank.
func (b Bank) Pick(rng *rand.Rand) (string, error) {
	if len(b) == 0 {
		return "", ErrEmptyBank
	}
	return b[rng.IntN(len(b))], nil
}

// Contains reports whether the bank holds the given scenario.
func (b Bank) Contains(scenario string) bool {
	for _, s := range b {
		if s == scenario {
			return true
		}
	}
	return false
}

// DefaultScenarios is the built-in scenario bank.
var DefaultScenarios = Bank{
	"You are a time-travelling tour guide explaining modern smartphones to someone from the 1800s.",
	"You are a restaurant waiter who must calmly tell a customer that their order has escaped the kitchen.",
	"You are a customer trying to return an obviously cursed object to a very skeptical shop owner.",
	"You are a cat trying to convince a dog to let you share the bed.",
	"You are a superhero whose only power is making toast slightly faster, interviewing for the Avengers.",
	"You are a alien trying to explain to your leader why you failed to conquer Earth (it was the pizza).",
}
