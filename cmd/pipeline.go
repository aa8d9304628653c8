/*
Copyright 2024 MoodSync Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"time"

	"github.com/spf13/viper"

	"github.com/moodsync/mood-tools/internal/ensemble"
	"github.com/moodsync/mood-tools/internal/estimator"
	"github.com/moodsync/mood-tools/internal/pipeline"
	"github.com/moodsync/mood-tools/internal/store"
)

func openStore() (*store.Store, error) {
	return store.New(viper.GetString("database"))
}

// buildEstimators assembles the ensemble from configuration. The audio
// estimator is always present; the remote inference services join when
// their endpoints are configured. Each service is independently failable,
// so a missing endpoint just narrows the ensemble.
func buildEstimators() []estimator.Estimator {
	timeout := 15 * time.Second
	estimators := []estimator.Estimator{estimator.NewAudio()}

	if url := viper.GetString("sentiment_url"); url != "" {
		estimators = append(estimators,
			estimator.NewRemote("vader", "1", estimator.KindPolarity, url, timeout))
	}
	if url := viper.GetString("classifier_url"); url != "" {
		estimators = append(estimators,
			estimator.NewRemote("roberta-sentiment", "1", estimator.KindLabels, url, timeout))
	}
	if url := viper.GetString("emotion_url"); url != "" {
		estimators = append(estimators,
			estimator.NewRemote("goemotions", "1", estimator.KindEmotions, url, timeout))
	}
	return estimators
}

func newCoordinator(st *store.Store) *pipeline.Coordinator {
	return pipeline.New(st, buildEstimators(), ensemble.Default(), 15*time.Second)
}
