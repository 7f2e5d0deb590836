// Package taskflowsdk is a Go client for the TaskFlow API and the home of
// its request and response types.
//
// Unauthenticated calls live on SDKClient:
//
//	client := taskflowsdk.NewSDKClient("http://localhost:8080")
//	session, err := client.Login(ctx, taskflowsdk.LoginRequest{
//		Email:    "ann@x.com",
//		Password: "secret1",
//	})
//
// Everything behind the bearer gate goes through the returned Session:
//
//	task, err := session.CreateTask(ctx, taskflowsdk.TaskRequest{
//		Title:       taskflowsdk.String("Write report"),
//		Description: taskflowsdk.String("Quarterly numbers"),
//	})
//
// Non-2xx replies come back as *APIError carrying the status, error code and
// any field errors.
package taskflowsdk
