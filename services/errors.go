package services

import "errors"

// Shared service errors; handlers map them to status codes with errors.Is
var (
	ErrBattleNotFound       = errors.New("battle not found")
	ErrMalformedBattle      = errors.New("battle record is malformed")
	ErrBattleAlreadyClaimed = errors.New("battle already claimed by another simulator run")
	ErrOwnershipConflict    = errors.New("losing spider is no longer owned by the losing user")

	ErrSpiderNotFound = errors.New("spider not found")
	ErrNotSpiderOwner = errors.New("spider is not owned by this user")
	ErrSpiderNotReady = errors.New("spider has not been classified yet")
	ErrSameSpider     = errors.New("a spider cannot fight itself")
	ErrBadNickname    = errors.New("nickname must be 1-40 characters")
	ErrNotASpider     = errors.New("classifier did not recognise a spider")

	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengeNotPending  = errors.New("challenge is no longer pending")
	ErrChallengeExpired     = errors.New("challenge has expired")
	ErrNotChallengeOpponent = errors.New("only the challenged user can respond")
	ErrSelfChallenge        = errors.New("you cannot challenge yourself")
)
