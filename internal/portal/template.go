package portal

// formPage is the provisioning form. Field names are part of the device's
// provisioning contract; companion docs reference them.
const formPage = `<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>LED Ring WiFi Setup</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            max-width: 500px;
            margin: 30px auto;
            padding: 20px;
            background: #f0f0f0;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 10px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
            margin-bottom: 20px;
        }
        h1 {
            color: #333;
            text-align: center;
            margin-bottom: 10px;
        }
        h2 {
            color: #555;
            font-size: 18px;
            margin-top: 20px;
            margin-bottom: 10px;
            border-bottom: 2px solid #4CAF50;
            padding-bottom: 5px;
        }
        input {
            width: 100%;
            padding: 12px;
            margin: 8px 0;
            border: 1px solid #ddd;
            border-radius: 5px;
            box-sizing: border-box;
        }
        button {
            width: 100%;
            padding: 12px;
            background: #4CAF50;
            color: white;
            border: none;
            border-radius: 5px;
            cursor: pointer;
            font-size: 16px;
            margin-top: 10px;
        }
        button:hover {
            background: #45a049;
        }
        .info {
            color: #666;
            font-size: 13px;
            margin-top: 10px;
        }
        label {
            color: #555;
            font-size: 14px;
            display: block;
            margin-top: 10px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>LED Ring Configuration</h1>
        <form action="/configure" method="POST">
            <h2>WiFi Settings</h2>
            <label>Network SSID *</label>
            <input type="text" name="ssid" placeholder="Your WiFi Network" required>

            <label>Network Password *</label>
            <input type="password" name="password" placeholder="WiFi Password" required>

            <h2>MQTT Settings</h2>
            <label>MQTT Broker</label>
            <input type="text" name="broker" placeholder="broker.hivemq.com" value="broker.hivemq.com">

            <label>MQTT Port</label>
            <input type="number" name="port" placeholder="1883" value="1883">

            <label>MQTT Topic</label>
            <input type="text" name="topic" placeholder="esp32/test" value="esp32/test">

            <label>MQTT Username (optional)</label>
            <input type="text" name="mqtt_user" placeholder="Leave blank if not required">

            <label>MQTT Password (optional)</label>
            <input type="password" name="mqtt_pass" placeholder="Leave blank if not required">

            <h2>OTA Update Settings</h2>
            <label>
                <input type="checkbox" name="ota_enabled" value="1" style="width: auto; margin-right: 8px;">
                Enable OTA Updates
            </label>

            <label>OTA Server URL</label>
            <input type="text" name="ota_url" placeholder="http://your-server.com/firmware">

            <label>
                <input type="checkbox" name="ota_boot_check" value="1" checked style="width: auto; margin-right: 8px;">
                Check for updates on boot
            </label>

            <label>
                <input type="checkbox" name="ota_auto_update" value="1" checked style="width: auto; margin-right: 8px;">
                Automatically apply updates
            </label>

            <button type="submit">Save &amp; Connect</button>
        </form>
        <div class="info">
            * Required fields. MQTT and OTA settings are optional.
        </div>
    </div>
</body>
</html>`

// successPage confirms a saved configuration before the device restarts.
const successPage = `<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Configuration Saved</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            max-width: 400px;
            margin: 50px auto;
            padding: 20px;
            text-align: center;
        }
        .success {
            color: #4CAF50;
            font-size: 24px;
            margin: 20px 0;
        }
    </style>
</head>
<body>
    <h1>&#10003; Configuration Saved</h1>
    <p class="success">The device will now restart, join your WiFi, and connect to the MQTT broker.</p>
    <p>You can close this page.</p>
</body>
</html>`
