package domain

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid generation request")
	ErrPlanningFailed = errors.New("planning failed")
	ErrAssetFailed    = errors.New("asset generation failed")
	ErrUnknownAsset   = errors.New("asset label not in plan")
	ErrAssetExists    = errors.New("asset already materialized")
	ErrRunNotFound    = errors.New("run not found")
	ErrRunSuperseded  = errors.New("run superseded")
)
