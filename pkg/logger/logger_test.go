package logger_test

import (
	"context"
	"testing"

	"github.com/voltleague/voltleague/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Get returns a usable logger", func() {
			log := logger.Get()
			So(log, ShouldNotBeNil)
			So(func() {
				log.Info(context.Background(), "test message", logger.String("key", "value"))
			}, ShouldNotPanic)
		})

		Convey("Named returns a scoped logger", func() {
			log := logger.Named("engine")
			So(log, ShouldNotBeNil)
			So(func() {
				log.Debug(context.Background(), "scoped message", logger.Int("n", 1))
			}, ShouldNotPanic)
		})

		Convey("Level strings parse", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("WARN"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
			So(logger.SetLevelString("nonsense"), ShouldNotBeNil)
		})
	})

	Convey("Field constructors carry their values", t, func() {
		So(logger.String("k", "v").Value, ShouldEqual, "v")
		So(logger.Int("k", 3).Value, ShouldEqual, 3)
		So(logger.Int64("k", int64(9)).Value, ShouldEqual, int64(9))
		So(logger.Float64("k", 1.5).Value, ShouldEqual, 1.5)
	})
}
