package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/handlers"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/middleware"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/services"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

func enableCORS(next http.Handler) http.Handler {
	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Collaboration Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	tasksCollectionName := os.Getenv("MONGO_TASKS_COLLECTION")
	if tasksCollectionName == "" {
		tasksCollectionName = "tasks"
	}
	projectsCollectionName := os.Getenv("MONGO_PROJECTS_COLLECTION")
	if projectsCollectionName == "" {
		projectsCollectionName = "projects"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	db := client.Database(mongoDBName)
	tasksCollection := db.Collection(tasksCollectionName)
	projectsCollection := db.Collection(projectsCollectionName)
	logging.Logger.Infof("Event ID: DB_COLLECTION_SET, Description: Using MongoDB collections: %s/%s, %s/%s", mongoDBName, tasksCollectionName, mongoDBName, projectsCollectionName)

	hub := ws.NewHub([]string{os.Getenv("ALLOWED_ORIGIN")})
	notifications := services.NewNotificationsClient(os.Getenv("NOTIFICATIONS_SERVICE_URL"))

	taskService := services.NewTaskService(tasksCollection, projectsCollection, hub)
	commentService := services.NewCommentService(taskService, hub, notifications)

	taskHandler := handlers.NewTaskHandler(taskService)
	commentHandler := handlers.NewCommentHandler(commentService)

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate)

	api.HandleFunc("/ws/{projectId}", hub.Handler).Methods(http.MethodGet)

	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", taskHandler.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/quick", taskHandler.CreateQuickTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskId}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/status", taskHandler.UpdateTaskStatus).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskId}/subtasks", taskHandler.AddSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}", taskHandler.UpdateSubtask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}", taskHandler.DeleteSubtask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/time", taskHandler.LogHours).Methods(http.MethodPost)

	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments", commentHandler.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments", commentHandler.GetComments).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}", commentHandler.DeleteComment).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}/pin", commentHandler.PinComment).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}/replies", commentHandler.AddReply).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}/replies/{replyId}", commentHandler.DeleteReply).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}/reactions", commentHandler.AddCommentReaction).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}/comments/{commentId}/replies/{replyId}/reactions", commentHandler.AddReplyReaction).Methods(http.MethodPost)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
