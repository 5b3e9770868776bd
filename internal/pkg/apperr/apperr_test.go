package apperr

import (
	"errors"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// TestHTTPStatus 测试错误级别到状态码的映射
func TestHTTPStatus(t *testing.T) {
	Convey("错误映射测试", t, func() {
		Convey("调用方错误映射为 400", func() {
			for _, e := range []*Error{
				MissingField("text"),
				UnsupportedModel("OPENAI", "gpt-5"),
				ChatNotFound(),
				ConversationMismatch(),
				UserNotFound(),
				RegenerateLimit(),
			} {
				So(e.HTTPStatus(), ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("积分不足映射为 403", func() {
			So(InsufficientCredits().HTTPStatus(), ShouldEqual, http.StatusForbidden)
		})

		Convey("上游错误映射为 502", func() {
			cause := errors.New("connection reset")
			for _, e := range []*Error{
				UpstreamRequestFailed(cause),
				PersistenceFailed(cause),
				UnknownModel("gpt-5"),
			} {
				So(e.HTTPStatus(), ShouldEqual, http.StatusBadGateway)
			}
		})

		Convey("错误码与定义一致", func() {
			So(MissingField("x").Code, ShouldEqual, 40001)
			So(UnsupportedModel("p", "m").Code, ShouldEqual, 40002)
			So(ChatNotFound().Code, ShouldEqual, 40003)
			So(ConversationMismatch().Code, ShouldEqual, 40004)
			So(UserNotFound().Code, ShouldEqual, 40005)
			So(RegenerateLimit().Code, ShouldEqual, 40006)
			So(InsufficientCredits().Code, ShouldEqual, 40301)
			So(UpstreamRequestFailed(nil).Code, ShouldEqual, 50201)
			So(PersistenceFailed(nil).Code, ShouldEqual, 50202)
			So(UnknownModel("m").Code, ShouldEqual, 50203)
		})

		Convey("Unwrap 保留原始错误", func() {
			cause := errors.New("timeout")
			e := UpstreamRequestFailed(cause)
			So(errors.Is(e, cause), ShouldBeTrue)
		})

		Convey("From 归一化任意错误", func() {
			e := From(errors.New("boom"))
			So(e.Code, ShouldEqual, 50202)

			original := ChatNotFound()
			So(From(original), ShouldEqual, original)
		})
	})
}
