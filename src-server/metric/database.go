package metric

import (
	"context"
	"gatherd/src-server/model"
	"gatherd/src-server/utils"
	"time"
)

func database(as *utils.AppState) (time.Duration, error) {
	start := time.Now()
	if _, err := as.BunDB.NewSelect().
		Model((*model.Event)(nil)).
		Where("id = ?", 0).
		Exists(context.Background()); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
