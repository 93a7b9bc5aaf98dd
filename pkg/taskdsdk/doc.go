// Package taskdsdk is a Go client for the taskd HTTP API.
//
// A Client talks to one server and keeps a cookie jar for the refresh
// token, so each Client holds at most one signed-in Session at a time:
//
//	client := taskdsdk.NewClient("http://localhost:8080")
//	session, err := client.SignIn(ctx, taskdsdk.SignInRequest{
//		Email:    "ada@example.com",
//		Password: "correct horse",
//	})
//	if err != nil {
//		return err
//	}
//	defer session.SignOut(ctx)
//
//	task, err := session.CreateTask(ctx, taskdsdk.CreateTaskRequest{
//		Title: "write report",
//		Tags:  []string{"work"},
//	})
//
// Session methods refresh the access token once when the server answers
// TOKEN_EXPIRED, then retry the request.
//
// Errors returned for non-2xx responses are *APIError; use IsStatus and
// HasReason to inspect them.
package taskdsdk
