package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pulumi/pulumi-digitalocean/sdk/v4/go/digitalocean"
	"github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes"
	corev1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/core/v1"
	metav1 "github.com/pulumi/pulumi-kubernetes/sdk/v4/go/kubernetes/meta/v1"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

const stack = "villa-booking"

func getOr(cfg *config.Config, key, fallback string) string {
	if v := cfg.Get(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		cfg := config.New(ctx, "")
		region := getOr(cfg, "region", "fra1")
		nodeSize := getOr(cfg, "nodeSize", "s-2vcpu-2gb")
		environment := getOr(cfg, "environment", "production")
		baseURL := getOr(cfg, "baseUrl", "https://villa.example.com")
		inventoryScope := getOr(cfg, "inventoryScope", "room_type")

		nodeCount := cfg.GetInt("nodeCount")
		if nodeCount == 0 {
			nodeCount = 2
		}

		// A single villa does not need a broker; the worker is optional.
		kafkaEnabled := cfg.GetBool("kafkaEnabled")

		vpc, err := digitalocean.NewVpc(ctx, stack+"-vpc", &digitalocean.VpcArgs{
			Name:    pulumi.String(stack + "-vpc"),
			Region:  pulumi.String(region),
			IpRange: pulumi.String("10.20.0.0/16"),
		})
		if err != nil {
			return err
		}

		cluster, err := digitalocean.NewKubernetesCluster(ctx, stack+"-cluster", &digitalocean.KubernetesClusterArgs{
			Name:    pulumi.String(stack + "-cluster"),
			Region:  pulumi.String(region),
			Version: pulumi.String("1.31.9-do.2"),
			VpcUuid: vpc.ID(),
			NodePool: &digitalocean.KubernetesClusterNodePoolArgs{
				Name:      pulumi.String("default"),
				Size:      pulumi.String(nodeSize),
				NodeCount: pulumi.Int(nodeCount),
			},
		})
		if err != nil {
			return err
		}

		database, err := digitalocean.NewDatabaseCluster(ctx, stack+"-postgres", &digitalocean.DatabaseClusterArgs{
			Name:               pulumi.String(stack + "-postgres"),
			Engine:             pulumi.String("pg"),
			Version:            pulumi.String("16"),
			Size:               pulumi.String("db-s-1vcpu-1gb"),
			Region:             pulumi.String(region),
			NodeCount:          pulumi.Int(1),
			PrivateNetworkUuid: vpc.ID(),
		})
		if err != nil {
			return err
		}

		// Valkey backs the calendar cache and the booking lock shared by replicas.
		valkeyCluster, err := digitalocean.NewDatabaseCluster(ctx, stack+"-valkey", &digitalocean.DatabaseClusterArgs{
			Name:               pulumi.String(stack + "-valkey"),
			Engine:             pulumi.String("valkey"),
			Version:            pulumi.String("8"),
			Size:               pulumi.String("db-s-1vcpu-1gb"),
			Region:             pulumi.String(region),
			NodeCount:          pulumi.Int(1),
			PrivateNetworkUuid: vpc.ID(),
		})
		if err != nil {
			return err
		}

		k8sProvider, err := kubernetes.NewProvider(ctx, "k8s-provider", &kubernetes.ProviderArgs{
			Kubeconfig: cluster.KubeConfigs.Index(pulumi.Int(0)).RawConfig(),
		})
		if err != nil {
			return err
		}

		namespace, err := corev1.NewNamespace(ctx, stack+"-namespace", &corev1.NamespaceArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name: pulumi.String(stack),
			},
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		settings := pulumi.StringMap{
			"DB_DRIVER":                pulumi.String("postgres"),
			"DB_HOST":                  database.Host,
			"DB_PORT":                  pulumi.Sprintf("%v", database.Port),
			"DB_NAME":                  database.Database,
			"DB_USER":                  database.User,
			"DB_SSL_MODE":              pulumi.String("require"),
			"REDIS_ENABLED":            pulumi.String("true"),
			"REDIS_HOST":               valkeyCluster.Host,
			"REDIS_PORT":               pulumi.Sprintf("%v", valkeyCluster.Port),
			"LOCK_DRIVER":              pulumi.String("redis"),
			"CALENDAR_FEED_URL":        pulumi.String(cfg.Get("calendarFeedUrl")),
			"CALENDAR_INVENTORY_SCOPE": pulumi.String(inventoryScope),
			"PAYSERA_PROJECT_ID":       pulumi.String(cfg.Get("payseraProjectId")),
			"PAYSERA_TEST_MODE":        pulumi.Sprintf("%t", environment != "production"),
			"BASE_URL":                 pulumi.String(baseURL),
			"ADMIN_USERNAME":           pulumi.String(getOr(cfg, "adminUsername", "admin")),
			"KAFKA_ENABLED":            pulumi.Sprintf("%t", kafkaEnabled),
			"ENVIRONMENT":              pulumi.String(environment),
		}

		secrets := pulumi.StringMap{
			"DB_PASSWORD":           database.Password,
			"REDIS_PASSWORD":        valkeyCluster.Password,
			"JWT_SECRET":            cfg.RequireSecret("jwtSecret"),
			"PAYSERA_SIGN_PASSWORD": cfg.RequireSecret("payseraSignPassword"),
			"ADMIN_PASSWORD_HASH":   cfg.RequireSecret("adminPasswordHash"),
		}

		if kafkaEnabled {
			kafkaCluster, err := digitalocean.NewDatabaseCluster(ctx, stack+"-kafka", &digitalocean.DatabaseClusterArgs{
				Name:               pulumi.String(stack + "-kafka"),
				Engine:             pulumi.String("kafka"),
				Version:            pulumi.String("3.8"),
				Size:               pulumi.String("db-s-2vcpu-2gb"),
				Region:             pulumi.String(region),
				NodeCount:          pulumi.Int(3),
				PrivateNetworkUuid: vpc.ID(),
			})
			if err != nil {
				return err
			}
			settings["KAFKA_BROKERS"] = pulumi.Sprintf("%s:%v", kafkaCluster.Host, kafkaCluster.Port)
			secrets["KAFKA_PASSWORD"] = kafkaCluster.Password
			ctx.Export("kafkaHost", kafkaCluster.Host)
		}

		_, err = corev1.NewConfigMap(ctx, stack+"-config", &corev1.ConfigMapArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name:      pulumi.String(stack + "-config"),
				Namespace: namespace.Metadata.Name(),
			},
			Data: settings,
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		_, err = corev1.NewSecret(ctx, stack+"-secret", &corev1.SecretArgs{
			Metadata: &metav1.ObjectMetaArgs{
				Name:      pulumi.String(stack + "-secret"),
				Namespace: namespace.Metadata.Name(),
			},
			StringData: secrets,
		}, pulumi.Provider(k8sProvider))
		if err != nil {
			return err
		}

		accessToken := os.Getenv("DIGITALOCEAN_ACCESS_TOKEN")
		if accessToken == "" {
			accessToken = cfg.Get("digitalocean:token")
		}

		if accessToken != "" {
			dockerConfig := map[string]interface{}{
				"auths": map[string]interface{}{
					"registry.digitalocean.com": map[string]interface{}{
						"username": "token",
						"password": accessToken,
						"auth":     base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("token:%s", accessToken))),
					},
				},
			}
			configJSON, err := json.Marshal(dockerConfig)
			if err != nil {
				return err
			}

			registrySecret, err := corev1.NewSecret(ctx, "registry-secret", &corev1.SecretArgs{
				Metadata: &metav1.ObjectMetaArgs{
					Name:      pulumi.String("regcred"),
					Namespace: namespace.Metadata.Name(),
				},
				Type: pulumi.String("kubernetes.io/dockerconfigjson"),
				Data: pulumi.StringMap{
					".dockerconfigjson": pulumi.String(base64.StdEncoding.EncodeToString(configJSON)),
				},
			}, pulumi.Provider(k8sProvider))
			if err != nil {
				return err
			}

			_, err = corev1.NewServiceAccount(ctx, "default-service-account", &corev1.ServiceAccountArgs{
				Metadata: &metav1.ObjectMetaArgs{
					Name:      pulumi.String("default"),
					Namespace: namespace.Metadata.Name(),
				},
				ImagePullSecrets: corev1.LocalObjectReferenceArray{
					&corev1.LocalObjectReferenceArgs{
						Name: registrySecret.Metadata.Name(),
					},
				},
			}, pulumi.Provider(k8sProvider), pulumi.DependsOn([]pulumi.Resource{registrySecret}))
			if err != nil {
				return err
			}
		}

		ctx.Export("clusterName", cluster.Name)
		ctx.Export("kubeconfig", cluster.KubeConfigs.Index(pulumi.Int(0)).RawConfig())
		ctx.Export("databaseHost", database.Host)
		ctx.Export("redisHost", valkeyCluster.Host)
		ctx.Export("vpcId", vpc.ID())

		return nil
	})
}
